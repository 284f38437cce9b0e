package object

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"policydesk-backend/internal/shared/util"
)

// NewKey builds the storage key for an agent's upload: the hashed agent ID as
// the directory, a random prefix so repeated uploads of the same policy do not
// collide, and the sanitized original name kept for debuggability. Keys always
// use forward slashes; backends map them to their own layout.
func NewKey(userID, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.HashUserKey(userID), randomPrefix()+"_"+name), nil
}

// DetectReader sniffs the content type from the first 512 bytes of r and
// returns it together with a reader that replays the sniffed bytes before the
// rest of r.
func DetectReader(r io.Reader) (string, io.Reader, error) {
	var sniff [512]byte
	n, err := io.ReadFull(r, sniff[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	return http.DetectContentType(sniff[:n]), io.MultiReader(bytes.NewReader(sniff[:n]), r), nil
}

func randomPrefix() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
