package session

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/knu-cse/dept-front/internal/crypto"
	"github.com/knu-cse/dept-front/internal/log"
)

// FirestoreStore persists sessions in Firestore so that logins survive
// restarts and multiple replicas share state. Tokens are encrypted at rest.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	encryptor  crypto.Encryptor
	ttl        time.Duration
}

var _ Store = (*FirestoreStore)(nil)

// firestoreSession is the wire format for a stored session. The bearer
// token never touches Firestore in plaintext.
type firestoreSession struct {
	EncryptedToken string    `firestore:"encryptedToken"`
	TokenType      string    `firestore:"tokenType"`
	ExpiresIn      int64     `firestore:"expiresIn"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

// NewFirestoreStore creates a Firestore-backed session store
func NewFirestoreStore(ctx context.Context, projectID, database, collection string, encryptionKey []byte, ttl time.Duration, opts ...option.ClientOption) (*FirestoreStore, error) {
	if collection == "" {
		collection = "sessions"
	}

	var client *firestore.Client
	var err error
	if database != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database, opts...)
	} else {
		client, err = firestore.NewClient(ctx, projectID, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	encryptor, err := crypto.NewEncryptor(encryptionKey)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("creating session encryptor: %w", err)
	}

	log.LogInfoWithFields("session", "Firestore session store initialized", map[string]any{
		"project":    projectID,
		"collection": collection,
	})

	return &FirestoreStore{
		client:     client,
		collection: collection,
		encryptor:  encryptor,
		ttl:        ttl,
	}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*Session, error) {
	doc, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var stored firestoreSession
	if err := doc.DataTo(&stored); err != nil {
		return nil, fmt.Errorf("parsing session document: %w", err)
	}

	if s.ttl > 0 && time.Since(stored.CreatedAt) > s.ttl {
		// Expired. Best effort cleanup, the caller just sees a miss.
		if _, err := s.client.Collection(s.collection).Doc(id).Delete(ctx); err != nil {
			log.LogWarnWithFields("session", "Failed to delete expired session", map[string]any{
				"error": err.Error(),
			})
		}
		return nil, ErrNotFound
	}

	token, err := s.encryptor.Decrypt(stored.EncryptedToken)
	if err != nil {
		return nil, fmt.Errorf("decrypting session token: %w", err)
	}

	return &Session{
		Token:     token,
		TokenType: stored.TokenType,
		ExpiresIn: stored.ExpiresIn,
		CreatedAt: stored.CreatedAt,
	}, nil
}

func (s *FirestoreStore) Set(ctx context.Context, id string, sess *Session) error {
	encrypted, err := s.encryptor.Encrypt(sess.Token)
	if err != nil {
		return fmt.Errorf("encrypting session token: %w", err)
	}

	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.client.Collection(s.collection).Doc(id).Set(ctx, firestoreSession{
		EncryptedToken: encrypted,
		TokenType:      sess.TokenType,
		ExpiresIn:      sess.ExpiresIn,
		CreatedAt:      createdAt,
	})
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Clear(ctx context.Context, id string) error {
	_, err := s.client.Collection(s.collection).Doc(id).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// CleanupExpired deletes all session documents past the TTL and returns
// the count. Runs from the periodic cleanup manager.
func (s *FirestoreStore) CleanupExpired(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-s.ttl)
	iter := s.client.Collection(s.collection).
		Where("createdAt", "<", cutoff).
		Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return count, fmt.Errorf("querying expired sessions: %w", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			log.LogWarnWithFields("session", "Failed to delete expired session", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		count++
	}
	return count, nil
}

// Close releases the underlying Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
