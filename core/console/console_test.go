package console

import (
	"bytes"
	"context"
	"testing"

	"github.com/adalundhe/pollwatch/core/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNotice(t *testing.T) {
	tests := []struct {
		op   watcher.FileOperation
		want string
	}{
		{watcher.OpCreate, "[CREATED] a.txt"},
		{watcher.OpModify, "[MODIFIED] a.txt"},
		{watcher.OpDelete, "[DELETED] a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNotice(watcher.ChangeEvent{Name: "a.txt", Operation: tt.op}))
		})
	}
}

func TestNotifier_OneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(&buf)
	ctx := context.Background()

	require.NoError(t, n.Consume(ctx, watcher.ChangeEvent{Name: "a.txt", Operation: watcher.OpCreate}))
	require.NoError(t, n.Consume(ctx, watcher.ChangeEvent{Name: "b.txt", Operation: watcher.OpDelete}))

	assert.Equal(t, "[CREATED] a.txt\n[DELETED] b.txt\n", buf.String())
	assert.Equal(t, "console", n.Name())
}
