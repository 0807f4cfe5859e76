package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	tests := []struct {
		name    string
		panics  bool
		wantMsg string
	}{
		{"panic becomes error", true, "panic in embed batch: native library crashed"},
		{"no panic leaves error nil", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := func() (err error) {
				defer Recover("embed batch", &err)
				if tt.panics {
					panic("native library crashed")
				}
				return nil
			}

			err := fn()
			if !tt.panics {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())

			var pe *PanicError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "native library crashed", pe.Value)
			assert.NotEmpty(t, pe.Stack)
		})
	}
}

func TestSafeGo(t *testing.T) {
	errCh := make(chan error, 1)
	SafeGo(func() { panic("boom") }, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		assert.Contains(t, err.Error(), "boom")
	case <-time.After(time.Second):
		t.Fatal("panic was not reported")
	}
}

func TestSafeGoWithoutHandler(t *testing.T) {
	done := make(chan struct{})
	SafeGo(func() {
		defer close(done)
		panic("ignored")
	}, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}
