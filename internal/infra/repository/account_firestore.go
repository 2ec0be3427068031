package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"moviestore/internal/domain/model"
	repo "moviestore/internal/repository"
)

// AccountRepositoryFS は Firestore 版の購入台帳。
//
// - collection: users
// - docId: uid
// - fields: firstName, lastName, email, favoriteGenres, purchaseHistory(array), createdAt, updatedAt
type AccountRepositoryFS struct {
	Client *firestore.Client
}

func NewAccountRepositoryFS(client *firestore.Client) *AccountRepositoryFS {
	return &AccountRepositoryFS{Client: client}
}

var _ repo.AccountRepository = (*AccountRepositoryFS)(nil)

func (r *AccountRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("users")
}

func (r *AccountRepositoryFS) doc(uid string) (*firestore.DocumentRef, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("account_repository_fs: firestore client is nil")
	}
	id := strings.TrimSpace(uid)
	if id == "" {
		return nil, errors.New("account_repository_fs: uid is empty")
	}
	return r.col().Doc(id), nil
}

// 既にあれば ErrAccountExists（Createは存在時にAlreadyExistsを返す）
func (r *AccountRepositoryFS) Create(ctx context.Context, acct *model.Account) error {
	ref, err := r.doc(acct.UID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	d := accountDocFromDomain(acct)
	d.CreatedAt = now
	d.UpdatedAt = now

	if _, err := ref.Create(ctx, d); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return repo.ErrAccountExists
		}
		return err
	}
	return nil
}

func (r *AccountRepositoryFS) FindByUID(ctx context.Context, uid string) (*model.Account, error) {
	ref, err := r.doc(uid)
	if err != nil {
		return nil, err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repo.ErrAccountNotFound
		}
		return nil, err
	}

	var d accountDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	acct := d.toDomain()
	acct.UID = snap.Ref.ID
	return acct, nil
}

// IDで既存を除いてから ArrayUnion する（ArrayUnionは値全体の一致しか見ないため）
func (r *AccountRepositoryFS) AppendPurchases(ctx context.Context, uid string, records []model.PurchaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	ref, err := r.doc(uid)
	if err != nil {
		return err
	}

	err = r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repo.ErrAccountNotFound
			}
			return err
		}

		var d accountDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}

		fresh := freshPurchases(d.toDomain().Purchases, records)
		if len(fresh) == 0 {
			return nil
		}

		values := make([]any, 0, len(fresh))
		for _, p := range fresh {
			values = append(values, purchaseDocFromDomain(p))
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "purchaseHistory", Value: firestore.ArrayUnion(values...)},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	return fsLedgerError("append purchases", err)
}

// freshPurchasesは履歴にまだ無いIDだけを返す（バッチ内の重複も1件に畳む）
func freshPurchases(existing model.PurchaseHistory, records []model.PurchaseRecord) []model.PurchaseRecord {
	merged := existing.Merge(records)
	return merged[len(existing):]
}

// fsLedgerErrorはgRPCステータスのメッセージをDetailにする
func fsLedgerError(op string, err error) error {
	if err == nil || errors.Is(err, repo.ErrAccountNotFound) {
		return err
	}
	detail := ""
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.OK, codes.Unknown, codes.Internal:
		case codes.DeadlineExceeded:
			detail = "The purchase service did not respond in time."
		default:
			detail = sentence(st.Message())
		}
	}
	return &repo.LedgerError{Op: op, Detail: detail, Err: err}
}

func (r *AccountRepositoryFS) UpdateName(ctx context.Context, uid string, firstName string, lastName string) error {
	return r.update(ctx, uid, []firestore.Update{
		{Path: "firstName", Value: firstName},
		{Path: "lastName", Value: lastName},
	})
}

func (r *AccountRepositoryFS) UpdateFavoriteGenres(ctx context.Context, uid string, genres []int) error {
	return r.update(ctx, uid, []firestore.Update{
		{Path: "favoriteGenres", Value: genres},
	})
}

func (r *AccountRepositoryFS) update(ctx context.Context, uid string, updates []firestore.Update) error {
	ref, err := r.doc(uid)
	if err != nil {
		return err
	}

	updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now().UTC()})
	if _, err := ref.Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return repo.ErrAccountNotFound
		}
		return err
	}
	return nil
}

// -----------------------------------------
// Firestore DTO
// -----------------------------------------

type accountDoc struct {
	FirstName       string        `firestore:"firstName"`
	LastName        string        `firestore:"lastName"`
	Email           string        `firestore:"email"`
	FavoriteGenres  []int         `firestore:"favoriteGenres"`
	PurchaseHistory []purchaseDoc `firestore:"purchaseHistory"`
	CreatedAt       time.Time     `firestore:"createdAt"`
	UpdatedAt       time.Time     `firestore:"updatedAt"`
}

// 配列要素（id / title / poster_path）
type purchaseDoc struct {
	ID         int64   `firestore:"id"`
	Title      string  `firestore:"title"`
	PosterPath *string `firestore:"poster_path"`
}

func purchaseDocFromDomain(p model.PurchaseRecord) purchaseDoc {
	return purchaseDoc{ID: p.ID, Title: p.Title, PosterPath: p.PosterPath}
}

func accountDocFromDomain(a *model.Account) accountDoc {
	genres := a.FavoriteGenres
	if genres == nil {
		genres = []int{}
	}
	history := make([]purchaseDoc, 0, len(a.Purchases))
	for _, p := range a.Purchases {
		history = append(history, purchaseDocFromDomain(p))
	}
	return accountDoc{
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		Email:           a.Email,
		FavoriteGenres:  genres,
		PurchaseHistory: history,
	}
}

func (d accountDoc) toDomain() *model.Account {
	history := make(model.PurchaseHistory, 0, len(d.PurchaseHistory))
	for _, p := range d.PurchaseHistory {
		history = append(history, model.PurchaseRecord{ID: p.ID, Title: p.Title, PosterPath: p.PosterPath})
	}
	return &model.Account{
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Email:          d.Email,
		FavoriteGenres: d.FavoriteGenres,
		Purchases:      history,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}
