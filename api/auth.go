package api

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/common/apitypes"
	"github.com/hermeznetwork/slotauction/metric"
	"github.com/hermeznetwork/tracerr"
)

const (
	// HeaderSigner is the header with the address that signed the request
	HeaderSigner = "X-Auction-Signer"
	// HeaderTimestamp is the header with the unix time at which the request
	// was signed
	HeaderTimestamp = "X-Auction-Timestamp"
	// HeaderSignature is the header with the hex encoded signature of the
	// request
	HeaderSignature = "X-Auction-Signature"

	callerKey = "caller"
)

var (
	// ErrSignatureExpired is returned when the timestamp of a signed
	// request is too far from the time of the node
	ErrSignatureExpired = errors.New("signature timestamp out of the accepted window")
	// ErrSignatureReplayed is returned when a signature has already been
	// used
	ErrSignatureReplayed = errors.New("signature already used")
	// ErrWrongSigner is returned when the recovered signer doesn't match the
	// signer header
	ErrWrongSigner = errors.New("signature does not match the signer")
	// ErrMalformedSignature is returned when the signature values are not
	// in their canonical form
	ErrMalformedSignature = errors.New("malformed signature")
)

// HashToSign builds the hash that authenticates a write request: the method,
// the path, the timestamp and the raw body, hashed as an Ethereum signed
// text message so that wallets can sign it with personal_sign
func HashToSign(method, path string, timestamp int64, body []byte) []byte {
	msg := fmt.Sprintf("%s %s\n%d\n", method, path, timestamp)
	return accounts.TextHash(append([]byte(msg), body...))
}

// SignRequest signs a write request with key and returns the signature
func SignRequest(key *ecdsa.PrivateKey, method, path string, timestamp int64, body []byte) ([]byte, error) {
	sig, err := ethCrypto.Sign(HashToSign(method, path, timestamp, body), key)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	// Use the wallets recovery id convention
	sig[64] += 27
	return sig, nil
}

// recoverSigner returns the address that produced sig over hash.  Both
// recovery id conventions (0/1 and 27/28) are accepted, and signatures with
// a high s value are rejected so that every request has a single valid
// signature per signer.
func recoverSigner(hash, sig []byte) (ethCommon.Address, error) {
	if len(sig) != ethCrypto.SignatureLength {
		return ethCommon.Address{}, tracerr.Wrap(fmt.Errorf("%w: length %d", ErrMalformedSignature, len(sig)))
	}
	sigCpy := make([]byte, len(sig))
	copy(sigCpy, sig)
	if sigCpy[64] >= 27 { //nolint:gomnd
		sigCpy[64] -= 27
	}
	r := new(big.Int).SetBytes(sigCpy[:32])
	s := new(big.Int).SetBytes(sigCpy[32:64])
	if !ethCrypto.ValidateSignatureValues(sigCpy[64], r, s, true) {
		return ethCommon.Address{}, tracerr.Wrap(ErrMalformedSignature)
	}
	pubK, err := ethCrypto.SigToPub(hash, sigCpy)
	if err != nil {
		return ethCommon.Address{}, tracerr.Wrap(err)
	}
	return ethCrypto.PubkeyToAddress(*pubK), nil
}

// replayGuard remembers the requests accepted inside the time window so
// that the same request can't be submitted twice.  Requests are identified
// by the signed hash and the signer, never by the signature bytes.
type replayGuard struct {
	rw     sync.Mutex
	window int64
	seen   map[string]int64
}

func newReplayGuard(window time.Duration) *replayGuard {
	return &replayGuard{
		window: int64(window / time.Second),
		seen:   make(map[string]int64),
	}
}

func replayKey(hash []byte, signer ethCommon.Address) string {
	return hexutil.Encode(hash) + signer.Hex()
}

// reserve validates the timestamp against now and registers the request.
// A reserved request is rejected until it's released.
func (g *replayGuard) reserve(key string, timestamp, now int64) error {
	if timestamp < now-g.window || timestamp > now+g.window {
		return tracerr.Wrap(fmt.Errorf("%w: timestamp %v, now %v", ErrSignatureExpired, timestamp, now))
	}
	g.rw.Lock()
	defer g.rw.Unlock()
	for k, ts := range g.seen {
		if ts < now-g.window {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[key]; ok {
		return tracerr.Wrap(ErrSignatureReplayed)
	}
	g.seen[key] = timestamp
	return nil
}

// release forgets a request that had no effect, so that the same signed
// request can be sent again
func (g *replayGuard) release(key string) {
	g.rw.Lock()
	defer g.rw.Unlock()
	delete(g.seen, key)
}

// authenticate verifies the signature headers of the request and returns
// the signer and the replay key of the request.  The body is restored so
// that handlers can bind it.
func (a *API) authenticate(c *gin.Context) (ethCommon.Address, string, error) {
	var signer apitypes.StrEthAddr
	if err := signer.UnmarshalText([]byte(c.GetHeader(HeaderSigner))); err != nil {
		return ethCommon.Address{}, "", tracerr.Wrap(fmt.Errorf("%v header: %w", HeaderSigner, err))
	}
	timestamp, err := strconv.ParseInt(c.GetHeader(HeaderTimestamp), 10, 64)
	if err != nil {
		return ethCommon.Address{}, "", tracerr.Wrap(fmt.Errorf("%v header: %w", HeaderTimestamp, err))
	}
	var sigStr apitypes.EthSignature
	if err := sigStr.UnmarshalText([]byte(c.GetHeader(HeaderSignature))); err != nil {
		return ethCommon.Address{}, "", tracerr.Wrap(fmt.Errorf("%v header: %w", HeaderSignature, err))
	}
	sig, err := sigStr.Bytes()
	if err != nil {
		return ethCommon.Address{}, "", tracerr.Wrap(err)
	}
	body, err := ioutil.ReadAll(c.Request.Body)
	if err != nil {
		return ethCommon.Address{}, "", tracerr.Wrap(err)
	}
	c.Request.Body = ioutil.NopCloser(bytes.NewReader(body))

	hash := HashToSign(c.Request.Method, c.Request.URL.Path, timestamp, body)
	addr, err := recoverSigner(hash, sig)
	if err != nil {
		return ethCommon.Address{}, "", tracerr.Wrap(err)
	}
	if addr != ethCommon.Address(signer) {
		return ethCommon.Address{}, "", tracerr.Wrap(fmt.Errorf("%w: recovered %v, signer %v",
			ErrWrongSigner, addr.Hex(), ethCommon.Address(signer).Hex()))
	}
	key := replayKey(hash, addr)
	if err := a.replay.reserve(key, timestamp, a.auction.Now()); err != nil {
		return ethCommon.Address{}, "", tracerr.Wrap(err)
	}
	return addr, key, nil
}

// signed is a middleware that rejects requests without a valid signature
// and stores the signer in the context.  A request rejected by its handler
// changed nothing, so its signature can be used again.
func (a *API) signed(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, key, err := a.authenticate(c)
		if err != nil {
			metric.SignedRequests.WithLabelValues(action, "rejected").Inc()
			retUnauthorized(err, c)
			return
		}
		metric.SignedRequests.WithLabelValues(action, "accepted").Inc()
		c.Set(callerKey, caller)
		c.Next()
		if c.Writer.Status() >= http.StatusBadRequest {
			a.replay.release(key)
		}
	}
}

func getCaller(c *gin.Context) ethCommon.Address {
	return c.MustGet(callerKey).(ethCommon.Address)
}
