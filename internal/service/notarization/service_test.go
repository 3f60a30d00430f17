package notarization

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/cybervault/internal/domain"
	"github.com/splax/cybervault/internal/notary"
	"github.com/splax/cybervault/internal/repository/memory"
	"github.com/splax/cybervault/internal/service/operation"
)

type stubNotary struct {
	txHash   string
	err      error
	verify   notary.VerifyResult
	notarize int
}

func (s *stubNotary) NotarizeDocument(context.Context, string, int64) (notary.NotarizeResult, error) {
	s.notarize++
	if s.err != nil {
		return notary.NotarizeResult{}, s.err
	}
	return notary.NotarizeResult{TransactionHash: s.txHash, HashParsed: true, BlockchainTimestamp: time.Now().UTC()}, nil
}

func (s *stubNotary) VerifyDocument(context.Context, string) (notary.VerifyResult, error) {
	return s.verify, nil
}

func newService(n Notary) (Service, *memory.Store) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New(memory.WithClock(func() time.Time { return time.Now().Add(time.Millisecond) }))
	return New(store, n, operation.New(store, log), nil, log), store
}

func hashOf(c string) string {
	return strings.Repeat(c, 64)
}

func TestNotarizeStoresDocument(t *testing.T) {
	ctx := context.Background()
	start := time.Now().UnixMilli()
	svc, _ := newService(&stubNotary{txHash: "feed"})

	res, err := svc.Notarize(ctx, NotarizeInput{Hash: hashOf("a"), FileName: "diploma.pdf", Category: domain.CategoryUniversityCredential, Timestamp: 1700000000})
	require.NoError(t, err)
	assert.True(t, res.Blockchain.Notarized)
	assert.Equal(t, "feed", res.Blockchain.TransactionHash)
	assert.True(t, res.Blockchain.TransactionHashParsed)
	assert.NotEmpty(t, res.Blockchain.OperationID)
	assert.Greater(t, res.Document.CreatedAt, start)
	assert.Equal(t, "feed", res.Document.BlockchainTxHash)
	assert.NotEmpty(t, res.Document.BlockchainTimestamp)
}

func TestNotarizeDuplicateLeavesCountUnchanged(t *testing.T) {
	ctx := context.Background()
	stub := &stubNotary{txHash: "feed"}
	svc, store := newService(stub)
	input := NotarizeInput{Hash: hashOf("b"), FileName: "x.pdf", Category: domain.CategoryOther, Timestamp: 1}

	_, err := svc.Notarize(ctx, input)
	require.NoError(t, err)
	_, err = svc.Notarize(ctx, input)
	require.ErrorIs(t, err, ErrDocumentExists)

	count, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, stub.notarize)
}

func TestNotarizeValidation(t *testing.T) {
	valid := NotarizeInput{Hash: hashOf("c"), FileName: "f.txt", Category: domain.CategoryLegalDocument, Timestamp: 10}
	cases := map[string]func(in *NotarizeInput){
		"short hash":       func(in *NotarizeInput) { in.Hash = "abc" },
		"non hex hash":     func(in *NotarizeInput) { in.Hash = hashOf("z") },
		"empty file name":  func(in *NotarizeInput) { in.FileName = " " },
		"unknown category": func(in *NotarizeInput) { in.Category = "Recipe" },
		"zero timestamp":   func(in *NotarizeInput) { in.Timestamp = 0 },
	}
	svc, _ := newService(&stubNotary{txHash: "feed"})
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := valid
			mutate(&input)
			_, err := svc.Notarize(context.Background(), input)
			var verr *domain.ValidationError
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}
}

func TestNotarizeAdapterFailure(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(&stubNotary{err: &notary.Error{Op: notary.OpNotarize, Message: "insufficient funds"}})

	_, err := svc.Notarize(ctx, NotarizeInput{Hash: hashOf("d"), FileName: "f", Category: domain.CategoryOther, Timestamp: 5})
	var notaryErr *notary.Error
	require.ErrorAs(t, err, &notaryErr)
	assert.Equal(t, "insufficient funds", notaryErr.Message)

	count, _ := store.CountDocuments(ctx)
	assert.Zero(t, count)
	ops, _ := store.ListOperations(ctx, 5)
	require.Len(t, ops, 1)
	assert.Equal(t, domain.OperationFailed, ops[0].Status)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	stub := &stubNotary{txHash: "feed", verify: notary.VerifyResult{Verified: true, OnChain: true}}
	svc, _ := newService(stub)
	_, err := svc.Notarize(ctx, NotarizeInput{Hash: hashOf("e"), FileName: "scan.png", Category: domain.CategoryMedicalRecord, Timestamp: 7})
	require.NoError(t, err)

	known, err := svc.Verify(ctx, hashOf("e"))
	require.NoError(t, err)
	assert.True(t, known.Verified)
	match, ok := known.Document.(LocalMatch)
	require.True(t, ok)
	assert.Equal(t, "scan.png", match.FileName)
	assert.True(t, match.BlockchainVerified)

	unseen, err := svc.Verify(ctx, hashOf("f"))
	require.NoError(t, err)
	assert.False(t, unseen.Verified)
	assert.Equal(t, NotFoundMessage, unseen.Message)
	assert.Nil(t, unseen.Document)

	stub.verify.Checked = true
	chainOnly, err := svc.Verify(ctx, hashOf("f"))
	require.NoError(t, err)
	assert.True(t, chainOnly.Verified)
	assert.Equal(t, ChainMatch{Hash: hashOf("f"), OnChainOnly: true}, chainOnly.Document)
}

func TestLocalMatchJSON(t *testing.T) {
	body, err := json.Marshal(Verification{
		Verified: true,
		Document: LocalMatch{Document: domain.Document{ID: 3, Hash: "ab", FileName: "a"}, OnChain: true, BlockchainVerified: true},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	doc := decoded["document"].(map[string]any)
	assert.Equal(t, "ab", doc["hash"])
	assert.Equal(t, true, doc["onChain"])
	assert.Equal(t, true, doc["blockchainVerified"])
	assert.NotContains(t, decoded, "message")
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(&stubNotary{txHash: "feed"})
	inputs := []NotarizeInput{
		{Hash: hashOf("1"), FileName: "xray.png", Category: domain.CategoryMedicalRecord, Timestamp: 1},
		{Hash: hashOf("2"), FileName: "deed.pdf", Category: domain.CategoryLegalDocument, Timestamp: 2},
	}
	for _, in := range inputs {
		_, err := svc.Notarize(ctx, in)
		require.NoError(t, err)
	}

	_, err := svc.Search(ctx, "  ")
	require.ErrorIs(t, err, ErrQueryRequired)

	found, err := svc.Search(ctx, "MeDiCaL")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "xray.png", found[0].FileName)
}
