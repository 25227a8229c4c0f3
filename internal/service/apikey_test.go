package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/edgar-filings-service/internal/model"
	"github.com/edgar-filings-service/internal/store"
)

func newTestKeyService(t *testing.T) (*APIKeyService, *store.Memory, *model.Account) {
	t.Helper()
	mem := store.NewMemory()
	account := &model.Account{Username: "owner", Status: model.StatusApproved}
	if err := mem.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return NewAPIKeyService(mem, mem), mem, account
}

func TestAPIKeyCreateAndAuthenticate(t *testing.T) {
	svc, _, account := newTestKeyService(t)
	ctx := context.Background()

	result, err := svc.Create(ctx, account.ID, "ci-pipeline")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(result.RawKey, KeyPrefix) {
		t.Fatalf("secret missing prefix: %s", result.RawKey)
	}
	if result.APIKey.KeyHash == result.RawKey {
		t.Fatal("plaintext must not be stored as hash")
	}
	if !strings.HasPrefix(result.RawKey, strings.TrimSuffix(result.APIKey.KeyPrefix, "...")) {
		t.Fatalf("display prefix %q does not match secret", result.APIKey.KeyPrefix)
	}

	gotAccount, gotKey, err := svc.AuthenticateKey(ctx, result.RawKey)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if gotAccount.ID != account.ID || gotKey.ID != result.APIKey.ID {
		t.Fatalf("authenticated wrong identity: account=%s key=%s", gotAccount.ID, gotKey.ID)
	}
}

func TestAPIKeyCreateRequiresName(t *testing.T) {
	svc, _, account := newTestKeyService(t)

	_, err := svc.Create(context.Background(), account.ID, "   ")
	assertErrorCode(t, err, "invalid_request")
}

func TestAPIKeyAuthenticateRejectsUnknownSecret(t *testing.T) {
	svc, _, account := newTestKeyService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, account.ID, "real"); err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		_, _, err := svc.AuthenticateKey(ctx, KeyPrefix+strings.Repeat("0", 64))
		assertErrorCode(t, err, "invalid_credentials")
	})

	t.Run("missing prefix", func(t *testing.T) {
		_, _, err := svc.AuthenticateKey(ctx, strings.Repeat("0", 64))
		assertErrorCode(t, err, "invalid_credentials")
	})
}

func TestAPIKeyRevokedSecretNeverAuthenticates(t *testing.T) {
	svc, _, account := newTestKeyService(t)
	ctx := context.Background()

	result, err := svc.Create(ctx, account.ID, "doomed")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Revoke(ctx, account.ID, result.APIKey.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	_, _, err = svc.AuthenticateKey(ctx, result.RawKey)
	assertErrorCode(t, err, "invalid_credentials")
}

func TestAPIKeyRevokeScopedToOwner(t *testing.T) {
	svc, mem, account := newTestKeyService(t)
	ctx := context.Background()

	other := &model.Account{Username: "other", Status: model.StatusApproved}
	if err := mem.CreateAccount(ctx, other); err != nil {
		t.Fatalf("seed other account: %v", err)
	}

	result, err := svc.Create(ctx, account.ID, "owned")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.Revoke(ctx, other.ID, result.APIKey.ID)
	assertErrorCode(t, err, "not_found")

	// Key still works for its owner.
	if _, _, err := svc.AuthenticateKey(ctx, result.RawKey); err != nil {
		t.Fatalf("key should survive foreign revoke: %v", err)
	}

	err = svc.Revoke(ctx, account.ID, uuid.New())
	assertErrorCode(t, err, "not_found")
}

func TestAPIKeyListNeverExposesSecretMaterial(t *testing.T) {
	svc, _, account := newTestKeyService(t)
	ctx := context.Background()

	result, err := svc.Create(ctx, account.ID, "visible")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	keys, total, err := svc.List(ctx, account.ID, 0, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(keys) != 1 {
		t.Fatalf("unexpected list size: total=%d len=%d", total, len(keys))
	}

	serialized, err := json.Marshal(keys)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(serialized)
	if strings.Contains(body, result.RawKey) {
		t.Fatal("list response contains plaintext secret")
	}
	if strings.Contains(body, result.APIKey.KeyHash) {
		t.Fatal("list response contains key hash")
	}
}

func TestAPIKeyConcurrentRevokeAndAuthenticate(t *testing.T) {
	svc, _, account := newTestKeyService(t)
	ctx := context.Background()

	result, err := svc.Create(ctx, account.ID, "contended")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, _ = svc.AuthenticateKey(ctx, result.RawKey)
		}()
	}
	close(start)
	if err := svc.Revoke(ctx, account.ID, result.APIKey.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	wg.Wait()

	// Once the revoke has returned, no authentication may succeed.
	for i := 0; i < 20; i++ {
		if _, _, err := svc.AuthenticateKey(ctx, result.RawKey); err == nil {
			t.Fatal("key authenticated after revoke committed")
		}
	}
}
