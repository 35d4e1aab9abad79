package tokenhash

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	t.Parallel()

	t.Run("deterministic", func(t *testing.T) {
		first, err := Hash("secret", AlgorithmSHA256, "pepper")
		require.NoError(t, err)
		second, err := Hash("secret", AlgorithmSHA256, "pepper")
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("pepper changes digest", func(t *testing.T) {
		a, err := Hash("secret", AlgorithmSHA256, "pepper-a")
		require.NoError(t, err)
		b, err := Hash("secret", AlgorithmSHA256, "pepper-b")
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("sha512 is supported", func(t *testing.T) {
		digest, err := Hash("secret", AlgorithmSHA512, "pepper")
		require.NoError(t, err)
		require.Len(t, digest, 128)
	})

	t.Run("unknown algorithm fails", func(t *testing.T) {
		_, err := Hash("secret", "md5", "pepper")
		require.Error(t, err)
	})
}

func TestFindBySecret(t *testing.T) {
	t.Parallel()

	stored := map[string]string{}
	oldHash, err := Hash("raw-token", AlgorithmSHA256, "retired-pepper")
	require.NoError(t, err)
	stored[oldHash] = "record-1"

	lookup := func(_ context.Context, hashed string) (string, bool, error) {
		v, ok := stored[hashed]
		return v, ok, nil
	}

	t.Run("finds record hashed with an older pepper", func(t *testing.T) {
		record, found, findErr := FindBySecret(context.Background(), "raw-token",
			AlgorithmSHA256, []string{"current-pepper", "retired-pepper"}, lookup)
		require.NoError(t, findErr)
		require.True(t, found)
		require.Equal(t, "record-1", record)
	})

	t.Run("not found when no pepper matches", func(t *testing.T) {
		_, found, findErr := FindBySecret(context.Background(), "raw-token",
			AlgorithmSHA256, []string{"unrelated"}, lookup)
		require.NoError(t, findErr)
		require.False(t, found)
	})

	t.Run("peppers are tried in order", func(t *testing.T) {
		var tried []string
		counting := func(ctx context.Context, hashed string) (string, bool, error) {
			tried = append(tried, hashed)
			return lookup(ctx, hashed)
		}

		currentHash, hashErr := Hash("raw-token", AlgorithmSHA256, "current-pepper")
		require.NoError(t, hashErr)

		_, found, findErr := FindBySecret(context.Background(), "raw-token",
			AlgorithmSHA256, []string{"current-pepper", "retired-pepper"}, counting)
		require.NoError(t, findErr)
		require.True(t, found)
		require.Equal(t, []string{currentHash, oldHash}, tried)
	})
}
