package language

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type scriptedGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func TestDetect(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, Yoruba, New(&scriptedGenerator{reply: " YO\n"}, nil).Detect(ctx, "Ṣe oogun yi dara?"))
	assert.Equal(t, English, New(&scriptedGenerator{reply: "fr"}, nil).Detect(ctx, "bonjour"))
	assert.Equal(t, English, New(&scriptedGenerator{err: errors.New("quota")}, nil).Detect(ctx, "x"))
	assert.Equal(t, English, New(nil, nil).Detect(ctx, "x"))
}

func TestTranslate_IdentityForEnglish(t *testing.T) {
	gen := &scriptedGenerator{reply: "should not be used"}
	svc := New(gen, nil)

	assert.Equal(t, "headache", svc.ToEnglish(context.Background(), "headache", English))
	assert.Equal(t, "headache", svc.FromEnglish(context.Background(), "headache", English))
	assert.Empty(t, gen.prompts)
}

func TestTranslate_UsesLanguageName(t *testing.T) {
	gen := &scriptedGenerator{reply: "orí fífọ́"}
	svc := New(gen, nil)

	got := svc.FromEnglish(context.Background(), "headache", Yoruba)
	assert.Equal(t, "orí fífọ́", got)
	assert.True(t, strings.Contains(gen.prompts[0], "to Yoruba"))
}

func TestTranslate_FailureKeepsText(t *testing.T) {
	svc := New(&scriptedGenerator{err: errors.New("timeout")}, nil)
	assert.Equal(t, "ciwon kai", svc.ToEnglish(context.Background(), "ciwon kai", Hausa))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Igbo, Normalize(" IG "))
	assert.Equal(t, Auto, Normalize("auto"))
	assert.Equal(t, English, Normalize("sw"))
	assert.Equal(t, English, Normalize(""))
}
