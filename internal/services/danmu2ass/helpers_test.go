package danmu2ass_test

import (
	"path/filepath"
	"testing"

	"danmaku/internal/testsupport"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	return testsupport.WriteScript(t, filepath.Join(dir, name), body)
}
