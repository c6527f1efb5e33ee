package eliza

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestEliza() *Eliza {
	return New(rand.New(rand.NewSource(1)))
}

func expand(templates []string, group string) []string {
	out := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		out = append(out, strings.ReplaceAll(tmpl, "{0}", group))
	}
	return out
}

func TestReplyEmptyInput(t *testing.T) {
	e := newTestEliza()
	for _, in := range []string{"", "   ", "\t\n"} {
		r := e.Reply(in)
		require.Equal(t, "Please say something.", r.Text)
		require.False(t, r.Goodbye)
	}
}

func TestReplyGoodbyeDetection(t *testing.T) {
	e := newTestEliza()
	for _, in := range []string{"goodbye", "Bye now", "I have to quit", "Farewell, doctor"} {
		r := e.Reply(in)
		require.True(t, r.Goodbye, "input %q should end the conversation", in)
		require.Contains(t, goodbyeResponses, r.Text)
	}
}

func TestReplyApology(t *testing.T) {
	e := newTestEliza()
	r := e.Reply("I am sorry about that")
	require.Contains(t, rules[0].responses, r.Text)
	require.False(t, r.Goodbye)
}

func TestReplySadnessReflectsEmotion(t *testing.T) {
	e := newTestEliza()
	r := e.Reply("I am feeling sad today")
	require.Contains(t, expand(rules[4].responses, "sad"), r.Text)
}

func TestReplyFamily(t *testing.T) {
	e := newTestEliza()
	r := e.Reply("My mother never understood me")
	require.Contains(t, expand(rules[3].responses, "mother"), r.Text)
}

func TestReplyRememberReflectsPronouns(t *testing.T) {
	e := newTestEliza()
	r := e.Reply("I remember my dog")
	require.Contains(t, expand(rules[1].responses, "your dog"), r.Text)
}

func TestReplyIAmReflects(t *testing.T) {
	// "i am" statements with no stronger keyword fall through to the
	// self-identification rule.
	e := newTestEliza()
	r := e.Reply("I am tired")
	require.Contains(t, expand(rules[9].responses, "tired"), r.Text)
}

func TestReplyDefaultFallback(t *testing.T) {
	e := newTestEliza()
	r := e.Reply("qwerty asdfgh")
	require.Contains(t, defaultResponses, r.Text)
}

func TestReflect(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"i am happy", "you are happy"},
		{"my dog", "your dog"},
		{"you are mean", "I am mean"},
		{"i was hoping you would listen", "you were hoping I would listen"},
		{"the weather", "the weather"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, reflect(tt.in))
	}
}

func TestFormatOutOfRangePlaceholderKeepsTemplate(t *testing.T) {
	require.Equal(t, "Who else in your family {1}?",
		format("Who else in your family {1}?", []string{"mom"}))
	require.Equal(t, "Your mom?", format("Your {0}?", []string{"mom"}))
}
