package chat

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Generator proposes possible replies given the conversation so far.
type Generator interface {
	Candidates(ctx context.Context, history []string) ([]string, error)
}

// Random picks which of the candidates is sent.
type Random interface {
	Index(ctx context.Context) (int, error)
}

// Retriever returns paths of documents relevant to the conversation.
type Retriever interface {
	Retrieve(ctx context.Context, history []string) ([]string, error)
}

type FileReader interface {
	ReadFile(path string) (string, error)
}

// DefaultResponses are the replies the Canned generator offers by default.
var DefaultResponses = []string{
	"And how does that make you feel?",
	"Interesting! Go on...",
}

// Canned offers the same responses no matter the history, after a delay mimicking
// an expensive inference.
type Canned struct {
	Responses []string
	Delay     time.Duration
}

func NewCanned(delay time.Duration) Canned {
	return Canned{
		Responses: DefaultResponses,
		Delay:     delay,
	}
}

func (c Canned) Candidates(ctx context.Context, _ []string) ([]string, error) {
	if err := sleep(ctx, c.Delay); err != nil {
		return nil, err
	}

	return append([]string(nil), c.Responses...), nil
}

// SeededRandom is a deterministic index source for a non-zero seed.
type SeededRandom struct {
	rng   *rand.Rand
	delay time.Duration
}

// NewSeededRandom seeds the generator with the given value, or with the current
// time if the seed is zero.
func NewSeededRandom(seed uint64, delay time.Duration) *SeededRandom {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &SeededRandom{
		rng:   rand.New(rand.NewSource(int64(seed))),
		delay: delay,
	}
}

func (s *SeededRandom) Index(ctx context.Context) (int, error) {
	if err := sleep(ctx, s.delay); err != nil {
		return 0, err
	}

	return s.rng.Int(), nil
}

// DirRetriever looks for documents named after the words of the latest message.
// For example, "tell me about go" matches both go.md and about.txt in the directory.
type DirRetriever struct {
	Dir string
}

func (d DirRetriever) Retrieve(ctx context.Context, history []string) ([]string, error) {
	if d.Dir == "" || len(history) == 0 {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, err
	}

	words := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(history[len(history)-1], notWordChar) {
		words[strings.ToLower(word)] = struct{}{}
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		if _, found := words[base]; found {
			paths = append(paths, filepath.Join(d.Dir, name))
		}
	}

	return paths, nil
}

func notWordChar(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
}

type OSReader struct{}

func (OSReader) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
