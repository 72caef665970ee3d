package slotdb

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   []string
	}{
		{"", 5, nil},
		{"abc", 5, []string{"abc"}},
		{"abcde", 5, []string{"abcde"}},
		{"abcdef", 5, []string{"abcde", "f"}},
		{`{"a":"1234"}`, 5, []string{`{"a":`, `"1234`, `"}`}},
		{"abc", 1, []string{"a", "b", "c"}},
		{"héllo世界", 3, []string{"hél", "lo世", "界"}},
	}
	for _, tt := range tests {
		got := SplitChunks(tt.s, tt.maxLen)
		deepEqual(t, got, tt.want)
		if j := JoinChunks(got); j != tt.s {
			t.Errorf("JoinChunks(SplitChunks(%q, %d)) = %q", tt.s, tt.maxLen, j)
		}
	}
}

func TestSplitChunksCount(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	alphabet := []rune("ab{}\"é世🙂")
	for range 500 {
		n := rnd.IntN(60)
		var sb strings.Builder
		for range n {
			sb.WriteRune(alphabet[rnd.IntN(len(alphabet))])
		}
		s := sb.String()
		c := 1 + rnd.IntN(10)

		chunks := SplitChunks(s, c)
		want := (n + c - 1) / c
		if len(chunks) != want {
			t.Fatalf("len(SplitChunks(%q, %d)) = %d, wanted %d", s, c, len(chunks), want)
		}
		for i, chunk := range chunks {
			l := utf8.RuneCountInString(chunk)
			if l > c || l == 0 || (i < len(chunks)-1 && l != c) || !utf8.ValidString(chunk) {
				t.Fatalf("SplitChunks(%q, %d)[%d] = %q is malformed", s, c, i, chunk)
			}
		}
		if JoinChunks(chunks) != s {
			t.Fatalf("JoinChunks(SplitChunks(%q, %d)) does not round-trip", s, c)
		}
	}
}

func TestSplitChunksRejectsNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("SplitChunks(s, 0) did not panic")
		}
	}()
	SplitChunks("abc", 0)
}

func TestDocumentRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 11))
	for range 200 {
		doc := randomDocument(rnd, 3)
		for _, c := range []int{1, 2, 7, 64, 1000} {
			got, err := Decode(JoinChunks(SplitChunks(Encode(doc), c)))
			ensure(t, err)
			if !got.Equal(doc) {
				t.Fatalf("round trip with chunk size %d changed %s into %s", c, Encode(doc), Encode(got))
			}
		}
	}
}

func randomDocument(rnd *rand.Rand, depth int) Document {
	doc := make(Document)
	for range rnd.IntN(6) {
		doc[randomString(rnd)] = randomValue(rnd, depth)
	}
	return doc
}

func randomValue(rnd *rand.Rand, depth int) Value {
	k := rnd.IntN(6)
	if depth == 0 {
		k %= 4
	}
	switch k {
	case 0:
		return Null()
	case 1:
		return Bool(rnd.IntN(2) == 0)
	case 2:
		return must(Number(float64(rnd.IntN(2000)-1000) / 8))
	case 3:
		return String(randomString(rnd))
	case 4:
		items := make([]Value, rnd.IntN(4))
		for i := range items {
			items[i] = randomValue(rnd, depth-1)
		}
		return Array(items...)
	default:
		return Object(randomDocument(rnd, depth-1))
	}
}

func randomString(rnd *rand.Rand) string {
	const alphabet = "abc:_\"\\<>&é世\n"
	runes := []rune(alphabet)
	n := rnd.IntN(8)
	out := make([]rune, n)
	for i := range out {
		out[i] = runes[rnd.IntN(len(runes))]
	}
	return string(out)
}
