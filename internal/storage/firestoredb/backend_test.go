package firestoredb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/idem-lexis/lexis-api/internal/storage"
)

func TestTranslate(t *testing.T) {
	other := errors.New("boom")
	denied := status.Error(codes.PermissionDenied, "denied")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "not found", in: status.Error(codes.NotFound, "no document"), want: storage.ErrNotFound},
		{name: "already exists", in: status.Error(codes.AlreadyExists, "exists"), want: storage.ErrAlreadyExists},
		{name: "wrapped not found", in: fmt.Errorf("get: %w", status.Error(codes.NotFound, "x")), want: storage.ErrNotFound},
		{name: "other status", in: denied, want: denied},
		{name: "plain error", in: other, want: other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

// TestBackend_Emulator runs against a Firestore emulator when
// FIRESTORE_EMULATOR_HOST is set, e.g. `gcloud emulators firestore start`.
func TestBackend_Emulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "lexis-test")
	require.NoError(t, err)
	b := New(client)
	t.Cleanup(func() { _ = b.Close() })

	model := storage.ModelDeployments
	project := uuid.NewString()
	id := uuid.NewString()

	require.NoError(t, b.Ping(ctx))
	require.NoError(t, b.Insert(ctx, model, id, storage.Document{"id": id, "projectId": project, "name": "web"}))
	assert.ErrorIs(t, b.Insert(ctx, model, id, storage.Document{"id": id}), storage.ErrAlreadyExists)

	doc, err := b.Get(ctx, model, id)
	require.NoError(t, err)
	assert.Equal(t, "web", doc["name"])

	docs, err := b.List(ctx, model, storage.Filter{"projectId": project})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0]["id"])

	require.NoError(t, b.Replace(ctx, model, id, storage.Document{"id": id, "projectId": project, "name": "api"}))
	assert.ErrorIs(t, b.Replace(ctx, model, uuid.NewString(), storage.Document{}), storage.ErrNotFound)

	require.NoError(t, b.Remove(ctx, model, id))
	assert.ErrorIs(t, b.Remove(ctx, model, id), storage.ErrNotFound)
	_, err = b.Get(ctx, model, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
