package stage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFileDiff(t *testing.T) {
	after := strings.ReplaceAll(pluginHeader, "0.0.0", "1.2.3")

	d := ComputeFileDiff("dist-test.php", pluginHeader, after)

	assert.Equal(t, "dist-test.php", d.Path)
	assert.ElementsMatch(t, []DiffLine{
		{LineNum: 4, Type: '-', Content: " * Version: 0.0.0"},
		{LineNum: 4, Type: '+', Content: " * Version: 1.2.3"},
		{LineNum: 6, Type: '-', Content: "define( 'DIST_TEST_VERSION', '0.0.0' );"},
		{LineNum: 6, Type: '+', Content: "define( 'DIST_TEST_VERSION', '1.2.3' );"},
	}, d.Lines)
}

func TestComputeFileDiffUnchanged(t *testing.T) {
	d := ComputeFileDiff("readme.txt", "Stable tag: 1.0.0\n", "Stable tag: 1.0.0\n")
	assert.Empty(t, d.Lines)
}

func TestComputeFileDiffNoTrailingNewline(t *testing.T) {
	d := ComputeFileDiff("VERSION", "0.0.0", "2.0.0")
	assert.Equal(t, []DiffLine{
		{LineNum: 1, Type: '-', Content: "0.0.0"},
		{LineNum: 1, Type: '+', Content: "2.0.0"},
	}, d.Lines)
}
