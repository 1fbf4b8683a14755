package artifacts

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

func TestSaveReadDelete(t *testing.T) {
	base, err := ioutil.TempDir("", "artifacts")
	require.NoError(t, err)
	defer os.RemoveAll(base)

	s := NewStore(base)

	path, err := s.Save(7, models.FormatMarkdown, []byte("# report"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, filepath.Join(base, "7")))
	assert.True(t, strings.HasSuffix(path, ".md"))

	data, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "# report", string(data))

	require.NoError(t, s.DeleteAll(7))
	_, err = s.Read(path)
	assert.Error(t, err)

	// deleting an absent contract dir is fine
	assert.NoError(t, s.DeleteAll(7))
}
