package stream

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiate_Examples(t *testing.T) {
	testCases := []struct {
		name         string
		header       string
		size         int64
		wantStatus   int
		wantStart    int64
		wantEnd      int64
		wantRange    string
		wantLength   string
		expectNotSat bool
	}{
		{
			name:       "先頭500バイト",
			header:     "bytes=0-499",
			size:       1000,
			wantStatus: http.StatusPartialContent,
			wantStart:  0,
			wantEnd:    499,
			wantRange:  "bytes 0-499/1000",
			wantLength: "500",
		},
		{
			name:       "終了位置の省略",
			header:     "bytes=500-",
			size:       1000,
			wantStatus: http.StatusPartialContent,
			wantStart:  500,
			wantEnd:    999,
			wantRange:  "bytes 500-999/1000",
			wantLength: "500",
		},
		{
			name:         "終了位置がリソース長を超える",
			header:       "bytes=999-1500",
			size:         1000,
			expectNotSat: true,
		},
		{
			name:       "Rangeなし",
			header:     "",
			size:       1000,
			wantStatus: http.StatusOK,
			wantStart:  0,
			wantEnd:    999,
			wantLength: "1000",
		},
		{
			name:       "最後の1バイト",
			header:     "bytes=999-999",
			size:       1000,
			wantStatus: http.StatusPartialContent,
			wantStart:  999,
			wantEnd:    999,
			wantRange:  "bytes 999-999/1000",
			wantLength: "1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := Negotiate(tc.header, tc.size, "video/mp4")
			if tc.expectNotSat {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrRangeNotSatisfiable))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, plan.Status)
			assert.Equal(t, tc.wantStart, plan.Start)
			assert.Equal(t, tc.wantEnd, plan.End)
			assert.Equal(t, tc.wantLength, plan.Header.Get(HeaderContentLength))
			assert.Equal(t, "video/mp4", plan.Header.Get(HeaderContentType))
			assert.Equal(t, tc.wantRange, plan.Header.Get(HeaderContentRange))
			if plan.Partial() {
				assert.Equal(t, "bytes", plan.Header.Get(HeaderAcceptRanges))
			}
		})
	}
}

func TestNegotiate_Malformed(t *testing.T) {
	headers := []string{
		"bytes=",
		"bytes=-",
		"bytes=-500",
		"bytes=abc-10",
		"bytes=10-abc",
		"bytes=+1-10",
		"bytes=1--10",
		"bytes= 1-10",
		"bytes=0-1,5-6",
		"items=0-10",
		"0-10",
		"bytes=99999999999999999999-",
	}

	for _, header := range headers {
		t.Run(header, func(t *testing.T) {
			_, err := Negotiate(header, 1000, "video/mp4")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRangeNotSatisfiable)

			var rangeErr *RangeError
			require.True(t, errors.As(err, &rangeErr))
			assert.Equal(t, header, rangeErr.Header)
			assert.Equal(t, "bytes */1000", rangeErr.ContentRange())
		})
	}
}

func TestNegotiate_ValidRangesProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		size := rng.Int63n(1<<20) + 1
		start := rng.Int63n(size)
		end := start + rng.Int63n(size-start)

		header := fmt.Sprintf("bytes=%d-%d", start, end)
		plan, err := Negotiate(header, size, "video/mp4")
		require.NoError(t, err, header)

		assert.Equal(t, http.StatusPartialContent, plan.Status)
		assert.Equal(t, end-start+1, plan.ContentLength)
		assert.Equal(t, fmt.Sprintf("bytes %d-%d/%d", start, end, size), plan.Header.Get(HeaderContentRange))
		assert.LessOrEqual(t, plan.Start, plan.End)
		assert.Less(t, plan.End, size)
	}
}

func TestNegotiate_OutOfBoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 500; i++ {
		size := rng.Int63n(1<<20) + 1

		var header string
		switch i % 3 {
		case 0: // start >= size
			header = fmt.Sprintf("bytes=%d-", size+rng.Int63n(1000))
		case 1: // end >= size
			header = fmt.Sprintf("bytes=0-%d", size+rng.Int63n(1000))
		default: // start > end
			end := rng.Int63n(size)
			header = fmt.Sprintf("bytes=%d-%d", end+1, end)
		}

		_, err := Negotiate(header, size, "video/mp4")
		assert.ErrorIs(t, err, ErrRangeNotSatisfiable, header)
	}
}

func TestNegotiate_EmptyResource(t *testing.T) {
	plan, err := Negotiate("", 0, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, plan.Status)
	assert.Equal(t, int64(0), plan.ContentLength)
	assert.Equal(t, "0", plan.Header.Get(HeaderContentLength))

	_, err = Negotiate("bytes=0-", 0, "video/mp4")
	assert.ErrorIs(t, err, ErrRangeNotSatisfiable)
}

func TestNegotiate_IsPure(t *testing.T) {
	first, err := Negotiate("bytes=10-20", 100, "video/webm")
	require.NoError(t, err)
	second, err := Negotiate("bytes=10-20", 100, "video/webm")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSequential(t *testing.T) {
	plan := Sequential("video/mp2t")
	assert.Equal(t, http.StatusOK, plan.Status)
	assert.False(t, plan.Bounded())
	assert.Empty(t, plan.Header.Get(HeaderContentLength))
	assert.Equal(t, "video/mp2t", plan.Header.Get(HeaderContentType))
}

func TestPlan_ApplyHeader(t *testing.T) {
	plan, err := Negotiate("bytes=0-9", 100, "video/mp4")
	require.NoError(t, err)

	h := http.Header{}
	h.Set("X-Request-Id", "abc")
	plan.ApplyHeader(h)

	assert.Equal(t, "abc", h.Get("X-Request-Id"))
	assert.Equal(t, "bytes 0-9/100", h.Get(HeaderContentRange))

	// 書き込み先を変更しても計画側は変わらない
	h.Set(HeaderContentRange, "changed")
	assert.Equal(t, "bytes 0-9/100", plan.Header.Get(HeaderContentRange))
}
