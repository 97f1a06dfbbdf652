package save

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/sha3"

	"github.com/urachaosarena-lab/TerminalOne/internal/model"
)

// Archive is one parsed save document.
type Archive struct {
	// Path is the filesystem path the archive was loaded from.
	// Empty when the archive was parsed from bytes directly.
	Path string

	// Digest is the hex-encoded SHA3-256 digest of the raw document bytes.
	Digest string

	// Heroes holds the decoded entries in document insertion order.
	Heroes []model.HeroEntry
}

// TotalHeroes returns the number of entries in the document.
func (a *Archive) TotalHeroes() int {
	return len(a.Heroes)
}

// Load reads and parses the save document at path.
func Load(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read save file: %w", err)
	}

	archive, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse save file %s: %w", path, err)
	}
	archive.Path = path
	return archive, nil
}

// Parse decodes a save document from raw bytes, preserving the order
// entries have in the document. A duplicate user id keeps its first
// position and takes the last record, the same resolution JSON object
// decoding applies everywhere else.
func Parse(data []byte) (*Archive, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}

	archive := &Archive{Digest: Digest(data)}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode user id: %w", err)
		}
		userID, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode user id: unexpected token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode record for user %q: %w", userID, err)
		}

		hero, err := model.DecodeHero(raw)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", userID, err)
		}

		if at, seen := index[userID]; seen {
			archive.Heroes[at].Hero = hero
			continue
		}
		index[userID] = len(archive.Heroes)
		archive.Heroes = append(archive.Heroes, model.HeroEntry{UserID: userID, Hero: hero})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	// json.Decoder stops at the closing brace; anything after it would be
	// silently ignored, so reject it explicitly.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}

	return archive, nil
}

// Digest returns the hex-encoded SHA3-256 digest of the raw save bytes.
func Digest(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
