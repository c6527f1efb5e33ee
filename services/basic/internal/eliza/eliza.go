// Package eliza implements the classic pattern-matching conversational
// responder used by the talk endpoint. Input is matched against an
// ordered rule set; captured fragments are reflected back with pronouns
// swapped before substitution into the chosen response.
package eliza

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Reply is one response, flagged when it ends the conversation.
type Reply struct {
	Text    string `json:"answer"`
	Goodbye bool   `json:"goodbye"`
}

var reflections = map[string]string{
	"am":       "are",
	"was":      "were",
	"i":        "you",
	"i'd":      "you would",
	"i've":     "you have",
	"i'll":     "you will",
	"my":       "your",
	"are":      "am",
	"you've":   "I have",
	"you'll":   "I will",
	"your":     "my",
	"yours":    "mine",
	"you":      "I",
	"me":       "you",
	"myself":   "yourself",
	"yourself": "myself",
}

var goodbyePattern = regexp.MustCompile(`.*(bye|goodbye|see you|farewell|quit|exit|leave).*`)

var goodbyeResponses = []string{
	"Thank you for talking with me.",
	"Good-bye. This was really a nice talk.",
	"Thank you, that will be $150. Have a good day!",
	"Good-bye. I hope I have helped you.",
	"This was a nice session. Good-bye.",
}

type rule struct {
	pattern   *regexp.Regexp
	responses []string
}

var rules = []rule{
	{regexp.MustCompile(`.*\bsorry\b.*`), []string{
		"Please don't apologize.",
		"Apologies are not necessary.",
		"What feelings do you have when you apologize?",
	}},
	{regexp.MustCompile(`.*\bremember\b (.*)`), []string{
		"Do you often think of {0}?",
		"Does thinking of {0} bring anything else to mind?",
		"What else do you remember?",
		"Why do you remember {0} just now?",
	}},
	{regexp.MustCompile(`.*\bdream\b.*`), []string{
		"What does that dream suggest to you?",
		"Do you dream often?",
		"What persons appear in your dreams?",
		"Are you disturbed by your dreams?",
	}},
	{regexp.MustCompile(`.*(mother|mom|father|dad|parents|family).*`), []string{
		"Tell me more about your family.",
		"Who else in your family {0}?",
		"Your {0}?",
		"What else comes to mind when you think of your {0}?",
	}},
	{regexp.MustCompile(`.*\b(sad|unhappy|depressed|upset)\b.*`), []string{
		"I am sorry to hear that you are {0}.",
		"Do you think coming here will help you not to be {0}?",
		"I'm sure it's not pleasant to be {0}.",
		"Can you explain what made you {0}?",
	}},
	{regexp.MustCompile(`.*\b(happy|elated|glad|better)\b.*`), []string{
		"How have I helped you to be {0}?",
		"Has your treatment made you {0}?",
		"What makes you {0} just now?",
		"Can you explain why you are suddenly {0}?",
	}},
	{regexp.MustCompile(`.*\b(believe|think)\b (.*)`), []string{
		"Do you really think so?",
		"But you are not sure you {0}.",
		"Do you really doubt you {0}?",
	}},
	{regexp.MustCompile(`.*(yes|yeah|yep).*`), []string{
		"You seem quite positive.",
		"You are sure?",
		"I see.",
		"I understand.",
	}},
	{regexp.MustCompile(`.*(no|nope|nah).*`), []string{
		"Are you saying 'No' just to be negative?",
		"You are being a bit negative.",
		"Why not?",
		"Why 'No'?",
	}},
	{regexp.MustCompile(`.*\bi am (.*)`), []string{
		"Did you come to me because you are {0}?",
		"How long have you been {0}?",
		"Do you believe it is normal to be {0}?",
		"Do you enjoy being {0}?",
	}},
	{regexp.MustCompile(`.*\bi (.*)`), []string{
		"We should be discussing you, not me.",
		"Why do you say that?",
		"I see.",
		"And what does that tell you?",
		"How does that make you feel?",
	}},
	{regexp.MustCompile(`.*\byou are (.*)`), []string{
		"Why are you interested in whether I am {0} or not?",
		"Would you prefer if I were not {0}?",
		"Perhaps I am {0} in your fantasies.",
		"Do you sometimes think I am {0}?",
	}},
	{regexp.MustCompile(`.*\byou (.*)`), []string{
		"We should be discussing you, not me.",
		"Oh, I {0}?",
		"You're not really talking about me, are you?",
		"What makes you think I {0}?",
	}},
}

var defaultResponses = []string{
	"Please tell me more.",
	"Let's change focus a bit... Tell me about your family.",
	"Can you elaborate on that?",
	"Why do you say that?",
	"I see.",
	"Very interesting.",
	"I see.  And what does that tell you?",
	"How does that make you feel?",
	"Do you feel strongly about discussing such things?",
}

var nonWord = regexp.MustCompile(`[^\w]`)

var placeholder = regexp.MustCompile(`\{(\d+)\}`)

// Eliza holds one conversation. Not safe for concurrent use; create
// one instance per conversation.
type Eliza struct {
	rng *rand.Rand
}

// New returns a conversation backed by the given randomness source. A
// nil rng gets a time-seeded one.
func New(rng *rand.Rand) *Eliza {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Eliza{rng: rng}
}

// Reply generates the response to one user message. A goodbye message
// yields a farewell reply flagged to end the conversation.
func (e *Eliza) Reply(message string) Reply {
	if strings.TrimSpace(message) == "" {
		return Reply{Text: "Please say something."}
	}

	input := strings.ToLower(message)

	if goodbyePattern.MatchString(input) {
		return Reply{Text: e.pick(goodbyeResponses), Goodbye: true}
	}

	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		chosen := e.pick(r.responses)
		if len(m) > 1 {
			groups := make([]string, len(m)-1)
			for i, g := range m[1:] {
				groups[i] = reflect(g)
			}
			return Reply{Text: format(chosen, groups)}
		}
		return Reply{Text: chosen}
	}

	return Reply{Text: e.pick(defaultResponses)}
}

func (e *Eliza) pick(options []string) string {
	return options[e.rng.Intn(len(options))]
}

// reflect swaps conversational perspective word by word, preserving
// trailing punctuation.
func reflect(fragment string) string {
	words := strings.Fields(strings.ToLower(fragment))
	out := make([]string, 0, len(words))

	for _, word := range words {
		clean := nonWord.ReplaceAllString(word, "")
		punct := ""
		if len(word) > len(clean) {
			punct = word[len(clean):]
		}
		if swapped, ok := reflections[clean]; ok {
			out = append(out, swapped+punct)
		} else {
			out = append(out, word)
		}
	}

	return strings.Join(out, " ")
}

// format substitutes {0}, {1}, ... placeholders. A placeholder with no
// matching group leaves the template untouched.
func format(template string, groups []string) string {
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx >= len(groups) {
			return template
		}
	}

	result := template
	for i, g := range groups {
		result = strings.ReplaceAll(result, "{"+strconv.Itoa(i)+"}", g)
	}
	return result
}
