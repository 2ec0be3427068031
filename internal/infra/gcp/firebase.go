// Package gcp はFirebase/Firestoreのクライアント初期化をまとめる。
package gcp

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Clients はFirebaseアプリから作ったクライアント
type Clients struct {
	App       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client // 台帳がfirestoreのときだけ
}

// New はFirebaseアプリを初期化する。
// credentialsFile が空文字の場合、ADC(Application Default Credentials)を使用します。
func New(ctx context.Context, projectID string, credentialsFile string, withFirestore bool) (*Clients, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase auth: %w", err)
	}

	c := &Clients{App: app, Auth: authClient}
	if withFirestore {
		fs, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		c.Firestore = fs
	}

	slog.Info("firebase initialized", "project", projectID, "firestore", withFirestore)
	return c, nil
}

// Close はFirestoreクライアントを閉じる
func (c *Clients) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}
