package auth

// Server-side SCRAM-SHA-256 (RFC 5802), grounded on lib/pq/scram.go's
// four-step client exchange (step1..step4), run in the mirrored server
// role: receive client-first, send server-first, receive
// client-final, send server-final. Uses golang.org/x/crypto/pbkdf2,
// already an indirect teacher dependency via that same file.

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/alex-dukhno/pgcore/internal/proto"
	"github.com/alex-dukhno/pgcore/pgerr"
)

const scramIterations = 4096

// SCRAM is the server-side SCRAM-SHA-256 backend. It derives the
// salted password from a cleartext credential looked up by username
// rather than storing a pre-computed verifier, matching the
// simplified CredentialStore this core ships (see auth.go).
type SCRAM struct {
	Store CredentialStore
}

func (SCRAM) Method() Method { return MethodSCRAM }

func (s SCRAM) Authenticate(ex Exchanger, username string) error {
	password, ok := s.Store.Lookup(username)
	if !ok {
		return pgerr.New(pgerr.KindProtocolViolation, "no credential for user %q", username)
	}

	// AuthenticationSASL: advertise the one mechanism this backend
	// speaks.
	if err := ex.SendAuthRequest(proto.AuthReqSASL, []byte("SCRAM-SHA-256\x00\x00")); err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "send AuthenticationSASL")
	}

	initial, err := ex.RecvResponse()
	if err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "read SASLInitialResponse")
	}
	clientFirst, err := stripMechanismHeader(initial)
	if err != nil {
		return err
	}
	cnonce, err := parseClientFirst(clientFirst)
	if err != nil {
		return err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return pgerr.Wrap(err, pgerr.KindInternal, "generate SCRAM salt")
	}
	serverNonce := cnonce + makeNonce()
	serverFirst := fmt.Sprintf("r=%s,s=%s,i=%d", serverNonce, base64.StdEncoding.EncodeToString(salt), scramIterations)

	if err := ex.SendAuthRequest(proto.AuthReqSASLCont, []byte(serverFirst)); err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "send AuthenticationSASLContinue")
	}

	final, err := ex.RecvResponse()
	if err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "read SASLResponse (client-final)")
	}
	channelBinding, nonce, proofB64, err := parseClientFinal(string(final))
	if err != nil {
		return err
	}
	if nonce != serverNonce {
		return pgerr.New(pgerr.KindProtocolViolation, "SCRAM nonce mismatch")
	}

	saltedPassword := pbkdf2.Key([]byte(password), salt, scramIterations, sha256.Size, sha256.New)
	clientKey := hmacSHA256(saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	authMessage := fmt.Sprintf("%s,%s,c=%s,r=%s", clientFirst, serverFirst, channelBinding, nonce)

	clientSignature := hmacSHA256(storedKey[:], []byte(authMessage))
	proof, err := base64.StdEncoding.DecodeString(proofB64)
	if err != nil {
		return pgerr.New(pgerr.KindProtocolViolation, "malformed SCRAM client proof")
	}
	recoveredClientKey := xorBytes(proof, clientSignature)
	recoveredStoredKey := sha256.Sum256(recoveredClientKey)
	if subtle.ConstantTimeCompare(recoveredStoredKey[:], storedKey[:]) != 1 {
		return pgerr.New(pgerr.KindProtocolViolation, "SCRAM authentication failed for user %q", username)
	}

	serverKey := hmacSHA256(saltedPassword, []byte("Server Key"))
	serverSignature := hmacSHA256(serverKey, []byte(authMessage))
	serverFinal := "v=" + base64.StdEncoding.EncodeToString(serverSignature)
	if err := ex.SendAuthRequest(proto.AuthReqSASLFin, []byte(serverFinal)); err != nil {
		return pgerr.Wrap(err, pgerr.KindProtocolViolation, "send AuthenticationSASLFinal")
	}
	return nil
}

func stripMechanismHeader(initial []byte) (string, error) {
	i := indexByte(initial, 0)
	if i < 0 {
		return "", pgerr.New(pgerr.KindProtocolViolation, "malformed SASLInitialResponse: missing mechanism terminator")
	}
	rest := initial[i+1:]
	if len(rest) < 4 {
		return "", pgerr.New(pgerr.KindProtocolViolation, "malformed SASLInitialResponse: truncated length")
	}
	n := int(rest[0])<<24 | int(rest[1])<<16 | int(rest[2])<<8 | int(rest[3])
	rest = rest[4:]
	if n < 0 || n > len(rest) {
		return "", pgerr.New(pgerr.KindProtocolViolation, "malformed SASLInitialResponse: bad length %d", n)
	}
	return string(rest[:n]), nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// parseClientFirst extracts the client nonce from "n,,n=<authzid>,r=<nonce>".
func parseClientFirst(msg string) (string, error) {
	parts := strings.Split(msg, ",")
	for _, p := range parts {
		if strings.HasPrefix(p, "r=") {
			return strings.TrimPrefix(p, "r="), nil
		}
	}
	return "", pgerr.New(pgerr.KindProtocolViolation, "client-first-message missing nonce")
}

// parseClientFinal extracts "c=<channel-binding>,r=<nonce>,...,p=<proof>".
func parseClientFinal(msg string) (channelBinding, nonce, proof string, err error) {
	parts := strings.Split(msg, ",")
	for _, p := range parts {
		switch {
		case strings.HasPrefix(p, "c="):
			channelBinding = strings.TrimPrefix(p, "c=")
		case strings.HasPrefix(p, "r="):
			nonce = strings.TrimPrefix(p, "r=")
		case strings.HasPrefix(p, "p="):
			proof = strings.TrimPrefix(p, "p=")
		}
	}
	if channelBinding == "" || nonce == "" || proof == "" {
		return "", "", "", pgerr.New(pgerr.KindProtocolViolation, "malformed client-final-message")
	}
	return channelBinding, nonce, proof, nil
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i%len(b)]
	}
	return out
}

func makeNonce() string {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(int64(len(buf)), 36)
	}
	return base64.RawStdEncoding.EncodeToString(buf)
}
