package startup

import (
	"context"
	"fmt"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// ConnectFirestore создаёт клиент Firestore. credentialsFile пустой — Application Default Credentials
// (или эмулятор, если задан FIRESTORE_EMULATOR_HOST).
func ConnectFirestore(ctx context.Context, projectID, credentialsFile string) (*gfs.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore: FIRESTORE_PROJECT_ID is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gfs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return client, nil
}
