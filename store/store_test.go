package store

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordLookup(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record("NLMDenoising", "threaded", "sig1", "cpu", 30*time.Millisecond))
	require.NoError(t, s.Record("NLMDenoising", "unthreaded", "sig1", "cpu", 100*time.Millisecond))
	require.NoError(t, s.Record("NLMDenoising", "threaded", "sig1", "cpu", 20*time.Millisecond))
	require.NoError(t, s.Record("NLMDenoising", "threaded", "sig2", "cpu", 5*time.Millisecond))
	require.NoError(t, s.Record("SRRFRadiality", "threaded", "sig1", "cpu", 1*time.Millisecond))

	history, err := s.Lookup("NLMDenoising", "sig1", "cpu")
	require.NoError(t, err)

	want := map[string][]time.Duration{
		"unthreaded": {100 * time.Millisecond},
		"threaded":   {30 * time.Millisecond, 20 * time.Millisecond},
	}
	if diff := cmp.Diff(want, history); diff != "" {
		t.Errorf("unexpected history (-want +got):\n%s", diff)
	}
}

func TestLookupExactKey(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record("op", "threaded", "sig1", "cpu", time.Millisecond))

	for _, key := range [][3]string{
		{"op", "sig2", "cpu"},
		{"op", "sig1", "cpu+opencl:0"},
		{"other", "sig1", "cpu"},
	} {
		history, err := s.Lookup(key[0], key[1], key[2])
		require.NoError(t, err)
		require.Empty(t, history, "key %v must not match", key)
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record("a", "threaded", "sig", "cpu", time.Millisecond))
	require.NoError(t, s.Record("b", "threaded", "sig", "cpu", time.Millisecond))

	require.NoError(t, s.Clear("a"))

	history, err := s.Lookup("a", "sig", "cpu")
	require.NoError(t, err)
	require.Empty(t, history)

	history, err = s.Lookup("b", "sig", "cpu")
	require.NoError(t, err)
	require.Len(t, history["threaded"], 1, "clear must be namespaced per operation")

	require.NoError(t, s.ClearAll())
	ops, err := s.Operations()
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Record("op", "guided", "sig", "cpu", 7*time.Millisecond))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	history, err := s.Lookup("op", "sig", "cpu")
	require.NoError(t, err)
	require.Equal(t, []time.Duration{7 * time.Millisecond}, history["guided"])
}

func TestOpenMemory(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record("op", "static", "sig", "cpu", time.Millisecond))
	history, err := s.Lookup("op", "sig", "cpu")
	require.NoError(t, err)
	require.Len(t, history["static"], 1)
}

func TestOperations(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record("b", "static", "sig", "cpu", time.Millisecond))
	require.NoError(t, s.Record("a", "static", "sig", "cpu", time.Millisecond))
	require.NoError(t, s.Record("a", "guided", "sig", "cpu", time.Millisecond))

	ops, err := s.Operations()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ops)
}
