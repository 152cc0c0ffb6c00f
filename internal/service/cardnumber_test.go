package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/card-service/internal/domain"
)

// luhnValid is an independent check used to verify generated numbers.
func luhnValid(number string) bool {
	sum := 0
	for i := range len(number) {
		d := int(number[len(number)-1-i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

type fakeNumberStore struct {
	taken   map[string]bool
	seq     int64
	lookups int
	err     error
}

func (f *fakeNumberStore) ExistsByNumber(_ context.Context, number string) (bool, error) {
	f.lookups++
	if f.err != nil {
		return false, f.err
	}
	return f.taken[number], nil
}

func (f *fakeNumberStore) NextNumberSequence(context.Context) (int64, error) {
	f.seq++
	return f.seq, nil
}

func TestLuhnCheckDigit(t *testing.T) {
	tests := []struct {
		body string
		want byte
	}{
		{"453201511283036", '6'},
		{"411111111111111", '1'},
		{"000000000000000", '0'},
	}
	for _, tc := range tests {
		assert.Equal(t, string(tc.want), string(luhnCheckDigit(tc.body)), tc.body)
		assert.True(t, luhnValid(tc.body+string(tc.want)))
	}
}

func TestRandomCardNumber(t *testing.T) {
	for range 200 {
		n, err := randomCardNumber()
		require.NoError(t, err)
		require.Len(t, n, 16)
		assert.True(t, strings.HasPrefix(n, randomIssuerPrefix))
		assert.True(t, luhnValid(n), n)
	}
}

func TestNumberGenerator_RetriesCollisions(t *testing.T) {
	store := &fakeNumberStore{taken: map[string]bool{"4000000000000002": true}}
	g := NewNumberGenerator(store, 5)

	candidates := []string{"4000000000000002", "4000000000000010"}
	g.random = func() (string, error) {
		c := candidates[0]
		candidates = candidates[1:]
		return c, nil
	}

	got, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4000000000000010", got)
	assert.Equal(t, 2, store.lookups)
}

func TestNumberGenerator_FallsBackToSequence(t *testing.T) {
	store := &fakeNumberStore{taken: map[string]bool{"4000000000000002": true}}
	g := NewNumberGenerator(store, 3)
	g.random = func() (string, error) { return "4000000000000002", nil }

	got, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, store.lookups)
	require.Len(t, got, 16)
	assert.True(t, strings.HasPrefix(got, sequenceIssuerPrefix+"00000000000001"))
	assert.True(t, luhnValid(got))
}

func TestNumberGenerator_StoreError(t *testing.T) {
	store := &fakeNumberStore{err: errors.New("connection refused")}
	g := NewNumberGenerator(store, 3)

	_, err := g.Generate(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestSequenceCardNumber_Overflow(t *testing.T) {
	_, err := sequenceCardNumber(100_000_000_000_000)
	assert.ErrorIs(t, err, domain.ErrCardNumberExhausted)

	n, err := sequenceCardNumber(99_999_999_999_999)
	require.NoError(t, err)
	assert.Len(t, n, 16)
	assert.True(t, luhnValid(n))
}
