package transcript

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/tucpd/listening-app/pkg/models"
)

func words(texts ...string) []models.Word {
	out := make([]models.Word, len(texts))
	for i, txt := range texts {
		out[i] = models.Word{Text: txt, Start: float64(i) * 0.8, End: float64(i+1) * 0.8}
	}
	return out
}

func TestSegmentEmpty(t *testing.T) {
	if got := Segment(nil); len(got) != 0 {
		t.Fatalf("expected no sentences, got %d", len(got))
	}
}

func TestSegmentBoundaries(t *testing.T) {
	in := words("Hello", "there.", "How", "are", "you?", "Great!", "trailing")
	got := Segment(in)

	want := []string{"Hello there.", "How are you?", "Great!", "trailing"}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d", len(want), len(got))
	}
	for i, s := range got {
		if s.Text != want[i] {
			t.Fatalf("sentence %d: got %q want %q", i, s.Text, want[i])
		}
		if s.Start != s.Words[0].Start || s.End != s.Words[len(s.Words)-1].End {
			t.Fatalf("sentence %d span mismatch: %+v", i, s)
		}
	}
}

func TestSegmentPunctuationOnlyAtEnd(t *testing.T) {
	got := Segment(words("e.g", "Mr.Smith", "left"))
	if len(got) != 1 {
		t.Fatalf("expected a single sentence, got %d", len(got))
	}
}

func TestSegmentReproducesInput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vocab := []string{"a", "b.", "c!", "d?", "e", "f"}

	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(30)
		texts := make([]string, n)
		for i := range texts {
			texts[i] = vocab[rng.Intn(len(vocab))]
		}
		in := words(texts...)

		var flat []models.Word
		for _, s := range Segment(in) {
			flat = append(flat, s.Words...)
		}
		if len(flat) != len(in) {
			t.Fatalf("round %d: got %d words, want %d", round, len(flat), len(in))
		}
		for i := range in {
			if flat[i] != in[i] {
				t.Fatalf("round %d: word %d differs: %+v vs %+v", round, i, flat[i], in[i])
			}
		}
	}
}

func TestHighlight(t *testing.T) {
	ws := []models.Word{
		{Text: "one", Start: 0, End: 1},
		{Text: "two", Start: 1.5, End: 2},
	}

	cases := []struct {
		t    float64
		want int
	}{
		{0, 0},
		{1, 0},
		{1.2, None},
		{1.5, 1},
		{2, 1},
		{2.01, None},
		{-1, None},
	}
	for _, c := range cases {
		if got := Highlight(c.t, ws); got != c.want {
			t.Fatalf("Highlight(%v) = %d, want %d", c.t, got, c.want)
		}
	}
}

func TestHighlightOverlapFirstMatch(t *testing.T) {
	ws := []models.Word{
		{Text: "late", Start: 3, End: 5},
		{Text: "early", Start: 1, End: 4},
	}
	if got := Highlight(3.5, ws); got != 0 {
		t.Fatalf("expected first match 0, got %d", got)
	}
	if got := Highlight(2, ws); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestHighlightNoneIffUncovered(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 100; round++ {
		ws := make([]models.Word, rng.Intn(8))
		for i := range ws {
			start := rng.Float64() * 10
			ws[i] = models.Word{Start: start, End: start + rng.Float64()}
		}
		for k := 0; k < 20; k++ {
			pos := rng.Float64() * 12
			covered := false
			for _, w := range ws {
				if pos >= w.Start && pos <= w.End {
					covered = true
				}
			}
			if (Highlight(pos, ws) == None) == covered {
				t.Fatalf("round %d: t=%v covered=%v but got %d", round, pos, covered, Highlight(pos, ws))
			}
		}
	}
}

func TestLastEndedBefore(t *testing.T) {
	ss := Segment(words("a.", "b.", "c."))
	if got := LastEndedBefore(1.7, ss); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := LastEndedBefore(0.1, ss); got != None {
		t.Fatalf("expected none, got %d", got)
	}
}

func TestWriteVTT(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteVTT(&buf, Segment(words("Hello", "world.", "Bye."))); err != nil {
		t.Fatalf("WriteVTT: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "WEBVTT\n\n") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.Contains(out, "00:00:00.000 --> 00:00:01.600\nHello world.") {
		t.Fatalf("unexpected first cue: %q", out)
	}
	if !strings.Contains(out, "2\n00:00:01.600 --> 00:00:02.400\nBye.") {
		t.Fatalf("unexpected second cue: %q", out)
	}
}
