package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/emile/errors"
)

var (
	rootOnce sync.Once
	testRoot *cobra.Command
)

// newRoot returns one shared root: the subcommands are package globals and
// can only have one parent.
func newRoot() *cobra.Command {
	rootOnce.Do(func() {
		testRoot = &cobra.Command{Use: "emile", SilenceUsage: true, SilenceErrors: true}
		testRoot.PersistentFlags().StringP(RootFlag, "C", ".", "")
		testRoot.AddCommand(ConfigCmd, NewCmd, ScheduleCmd, UnscheduleCmd, ReslugCmd, StatusCmd, VersionCmd)
	})
	return testRoot
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func zolaSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("base_url = \"https://blog.test\"\ndefault_language = \"en\"\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "draft.md"),
		[]byte("+++\n[taxonomies]\ntags = []\n+++\n"), 0644))
	return dir
}

func TestConfigInitShowValidate(t *testing.T) {
	dir := zolaSite(t)

	_, err := run(t, "config", "init", "-C", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "emile.toml"))

	_, err = run(t, "config", "init", "-C", dir)
	require.Error(t, err, "init never overwrites")

	out, err := run(t, "config", "show", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `publish_dest = 'content/posts'`)
	assert.Contains(t, out, `base_url = 'https://blog.test'`)

	out, err = run(t, "config", "show", "-C", dir, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "publishdest: content/posts")

	_, err = run(t, "config", "show", "-C", dir, "--format", "ini")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
	configFormat = "toml"

	_, err = run(t, "config", "validate", "-C", dir)
	require.NoError(t, err)
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	dir := zolaSite(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "emile.toml"), []byte("timezone = 42\n"), 0644))

	_, err := run(t, "config", "validate", "-C", dir)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestNewScheduleUnschedule(t *testing.T) {
	dir := zolaSite(t)

	_, err := run(t, "new", "-C", dir, "Hello", "World")
	require.NoError(t, err)

	drafts := filepath.Join(dir, "content", "drafts")
	entries, err := os.ReadDir(drafts)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}-hello-world\.md$`, name)

	_, err = run(t, "schedule", "-C", dir, "tomorrow 10:00", name)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(drafts, "scheduled", name))

	_, err = run(t, "status", "-C", dir)
	require.NoError(t, err)

	_, err = run(t, "unschedule", "-C", dir, name)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(drafts, name))
}

func TestReslugCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "-wip.md")
	require.NoError(t, os.WriteFile(src, []byte("+++\ntitle = \"Final Title\"\n+++\n"), 0644))

	_, err := run(t, "reslug", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "final-title.md"))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "emile ")
}
