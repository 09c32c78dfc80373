package backup

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrRootMismatch is returned when downloaded content does not hash to the requested root.
var ErrRootMismatch = errors.New("backup: downloaded content does not match root")

// maxSnapshotBytes caps restored snapshots.
const maxSnapshotBytes = 64 << 20

// Uploader stores and fetches snapshots by Merkle root.
type Uploader interface {
	Upload(ctx context.Context, data []byte) (common.Hash, error)
	Download(ctx context.Context, root common.Hash) ([]byte, error)
}

// IndexerClient talks to a storage indexer over HTTP. Uploads are signed with a secp256k1 key.
type IndexerClient struct {
	baseURL string
	key     *ecdsa.PrivateKey
	signer  common.Address
	http    *http.Client
}

// NewIndexerClient returns a client for the indexer at baseURL. httpClient may be nil.
func NewIndexerClient(baseURL string, key *ecdsa.PrivateKey, httpClient *http.Client) (*IndexerClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("backup: indexer URL is empty")
	}
	if key == nil {
		return nil, errors.New("backup: signing key is nil")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &IndexerClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     key,
		signer:  crypto.PubkeyToAddress(key.PublicKey),
		http:    httpClient,
	}, nil
}

// Signer returns the address uploads are signed by.
func (c *IndexerClient) Signer() common.Address {
	return c.signer
}

// Upload computes the Merkle root of data, signs it and posts the bytes to {indexer}/file/upload.
func (c *IndexerClient) Upload(ctx context.Context, data []byte) (common.Hash, error) {
	root := MerkleRoot(data)
	sig, err := crypto.Sign(root.Bytes(), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("backup: sign root: %w", err)
	}
	u := c.baseURL + "/file/upload?" + url.Values{"root": {root.Hex()}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return common.Hash{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Root-Signature", hexutil.Encode(sig))
	req.Header.Set("X-Signer", c.signer.Hex())
	resp, err := c.http.Do(req)
	if err != nil {
		return common.Hash{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return common.Hash{}, fmt.Errorf("backup: upload returned %s", resp.Status)
	}
	return root, nil
}

// Download fetches the content stored under root and checks it hashes back to root.
func (c *IndexerClient) Download(ctx context.Context, root common.Hash) ([]byte, error) {
	u := c.baseURL + "/file?" + url.Values{"root": {root.Hex()}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("backup: download returned %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, err
	}
	if MerkleRoot(data) != root {
		return nil, ErrRootMismatch
	}
	return data, nil
}

// VerifyUpload reports whether sig over root was produced by signer. Used by tests and indexer stubs.
func VerifyUpload(root common.Hash, sigHex string, signer common.Address) bool {
	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != 65 {
		return false
	}
	pub, err := crypto.SigToPub(root.Bytes(), sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == signer
}
