package input

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tongchengbin/xport/pkg/types"
)

func hosts(targets []types.Target) []string {
	out := make([]string, 0, len(targets))
	for _, target := range targets {
		out = append(out, target.Host())
	}
	return out
}

func TestExpandExamples(t *testing.T) {
	testCases := []struct {
		expr string
		want []string
	}{
		{expr: "127.0.0.1", want: []string{"127.0.0.1"}},
		{expr: "example.com", want: []string{"example.com"}},
		{expr: "web-01.internal", want: []string{"web-01.internal"}},
		{expr: "::1", want: []string{"::1"}},
		{expr: "10.0.0.1-10.0.0.3", want: []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}},
		{expr: "10.0.0.1 - 10.0.0.1", want: nil},
		{expr: "192.168.1.0/30", want: []string{"192.168.1.0", "192.168.1.1", "192.168.1.2", "192.168.1.3"}},
		{expr: "192.168.1.2/30", want: []string{"192.168.1.0", "192.168.1.1", "192.168.1.2", "192.168.1.3"}},
		{expr: "192.168.1.7/32", want: []string{"192.168.1.7"}},
		{expr: "10.0.0.255-10.0.1.1", want: []string{"10.0.0.255", "10.0.1.0", "10.0.1.1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Expand(tc.expr)
			if tc.want == nil {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, hosts(got))
		})
	}
}

func TestExpandRangeProperties(t *testing.T) {
	ranges := []struct {
		start, end string
		count      int
	}{
		{"10.0.0.1", "10.0.0.1", 1},
		{"10.0.0.1", "10.0.0.254", 254},
		{"172.16.0.0", "172.16.3.255", 1024},
		{"255.255.255.250", "255.255.255.255", 6},
	}
	for _, r := range ranges {
		targets, err := Expand(r.start + "-" + r.end)
		require.NoError(t, err)
		require.Len(t, targets, r.count)
		assert.Equal(t, r.start, targets[0].Host())
		assert.Equal(t, r.end, targets[len(targets)-1].Host())
		for i := 1; i < len(targets); i++ {
			assert.Negative(t, targets[i-1].Compare(targets[i]), "range must be strictly ascending")
		}
	}
}

func TestExpandCIDRProperties(t *testing.T) {
	for bits := 16; bits <= 32; bits++ {
		expr := fmt.Sprintf("10.20.0.0/%d", bits)
		targets, err := Expand(expr)
		require.NoError(t, err, expr)
		assert.Len(t, targets, 1<<(32-bits), expr)
		assert.Equal(t, "10.20.0.0", targets[0].Host())
	}
}

func TestExpandInvalid(t *testing.T) {
	testCases := []struct {
		expr   string
		target interface{}
	}{
		{"", new(*types.InvalidTargetError)},
		{"   ", new(*types.InvalidTargetError)},
		{"bad host", new(*types.InvalidTargetError)},
		{"exa$mple.com", new(*types.InvalidTargetError)},
		{"-leading.example", new(*types.InvalidTargetError)},
		{"10.0.0.0/33", new(*types.InvalidTargetError)},
		{"10.0.0.0/abc", new(*types.InvalidTargetError)},
		{"2001:db8::/120", new(*types.InvalidTargetError)},
		{"10.0.0.5-10.0.0.1", new(*types.InvalidRangeError)},
		{"10.0.0.1-10.0.0.300", new(*types.InvalidRangeError)},
		{"10.0.0.1-", new(*types.InvalidRangeError)},
		{"::1-::5", new(*types.InvalidRangeError)},
		{"1.2.3-1.2.4", new(*types.InvalidRangeError)},
	}
	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			_, err := Expand(tc.expr)
			require.Error(t, err)
			assert.True(t, errors.As(err, tc.target), "unexpected error type %T: %v", err, err)
		})
	}
}

func TestExpandSafetyCeiling(t *testing.T) {
	expander := NewExpander(256)
	targets, err := expander.Expand("10.0.0.0/24")
	require.NoError(t, err)
	assert.Len(t, targets, 256)

	_, err = expander.Expand("10.0.0.0/23")
	var tooLarge *types.TargetSetTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, uint64(512), tooLarge.Count)
	assert.Equal(t, 256, tooLarge.Limit)

	_, err = expander.Expand("10.0.0.0-10.0.1.0")
	assert.True(t, errors.As(err, &tooLarge))

	_, err = Expand("10.0.0.0/15")
	assert.True(t, errors.As(err, &tooLarge))

	targets, err = NewExpander(0).Expand("10.0.0.0/15")
	require.NoError(t, err)
	assert.Len(t, targets, 1<<17)
}

func TestExpandAllDeduplicates(t *testing.T) {
	expander := NewExpander(DefaultMaxHosts)
	targets, err := expander.ExpandAll([]string{"10.0.0.2-10.0.0.3", "10.0.0.0/30", "Example.com", "example.com."})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.2", "10.0.0.3", "10.0.0.0", "10.0.0.1", "Example.com"}, hosts(targets))

	_, err = expander.ExpandAll([]string{"10.0.0.1", "10.0.0.9-10.0.0.1"})
	assert.Error(t, err)
}

func TestCreateProvider(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "targets.txt")
	require.NoError(t, os.WriteFile(file, []byte("# lab hosts\n10.0.0.1\n\n  192.168.1.0/30  \n"), 0o644))

	provider, err := CreateProvider([]string{"127.0.0.1", " "}, file)
	require.NoError(t, err)
	defer provider.Close()
	assert.Equal(t, 3, provider.Count())
	assert.Equal(t, []string{"127.0.0.1", "10.0.0.1", "192.168.1.0/30"}, Collect(provider))

	var first []string
	provider.Scan(func(expr string) bool {
		first = append(first, expr)
		return false
	})
	assert.Equal(t, []string{"127.0.0.1"}, first)

	_, err = CreateProvider(nil, "")
	assert.Error(t, err)
	_, err = CreateProvider(nil, dir)
	assert.Error(t, err)
	_, err = CreateProvider(nil, filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
