package main

import "testing"

func TestDrawQuestionPairCoversPoolWithoutRepeats(t *testing.T) {
	used := make(map[int]bool)
	seen := make(map[int]bool)

	for range questionPairs {
		idx, pair := drawQuestionPair(used)

		if idx < 0 || idx >= len(questionPairs) {
			t.Fatalf("index %d out of range", idx)
		}
		if seen[idx] {
			t.Fatalf("index %d drawn twice before exhaustion", idx)
		}
		if pair != questionPairs[idx] {
			t.Fatalf("pair does not match index %d", idx)
		}

		seen[idx] = true
	}

	if len(seen) != len(questionPairs) {
		t.Fatalf("expected every pair drawn once, got %d of %d", len(seen), len(questionPairs))
	}
}

func TestDrawQuestionPairResetsWhenExhausted(t *testing.T) {
	used := make(map[int]bool)
	for i := range questionPairs {
		used[i] = true
	}

	idx, _ := drawQuestionPair(used)

	if len(used) != 1 {
		t.Fatalf("expected used set reset to 1 entry, got %d", len(used))
	}
	if !used[idx] {
		t.Fatalf("expected drawn index %d marked used", idx)
	}
}

func TestQuestionPairsAreDistinct(t *testing.T) {
	for i, pair := range questionPairs {
		if pair.Real == "" || pair.Liar == "" {
			t.Fatalf("pair %d has an empty question", i)
		}
		if pair.Real == pair.Liar {
			t.Fatalf("pair %d uses the same question for both roles", i)
		}
	}
}

func TestRandIntnBounds(t *testing.T) {
	if got := randIntn(1); got != 0 {
		t.Fatalf("expected 0 for n=1, got %d", got)
	}

	for i := 0; i < 100; i++ {
		if got := randIntn(5); got < 0 || got >= 5 {
			t.Fatalf("value %d out of [0,5)", got)
		}
	}
}
