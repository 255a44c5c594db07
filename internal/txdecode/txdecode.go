// Package txdecode sniffs the wire format of a base64 Solana transaction.
//
// The result is advisory. Authoritative validation belongs to the relay and
// the chain, so decoding never fails: anything that does not parse is
// reported as Unrecognized.
package txdecode

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

type Format int

const (
	Unrecognized Format = iota
	Legacy
	Versioned
)

func (f Format) String() string {
	switch f {
	case Legacy:
		return "legacy"
	case Versioned:
		return "versioned"
	default:
		return "unrecognized"
	}
}

// Parsed reports whether one of the known envelopes matched.
func (f Format) Parsed() bool {
	return f == Legacy || f == Versioned
}

var (
	errNotLegacy    = errors.New("txdecode: message is versioned")
	errNotVersioned = errors.New("txdecode: message is legacy")
)

type parser struct {
	format Format
	parse  func(encoded string) error
}

// Legacy is tried before versioned; the order is part of the response contract.
var parsers = []parser{
	{format: Legacy, parse: parseLegacy},
	{format: Versioned, parse: parseVersioned},
}

// Decode returns the first format whose parser accepts encoded.
func Decode(encoded string) Format {
	if encoded == "" {
		return Unrecognized
	}
	for _, p := range parsers {
		if err := safeParse(p.parse, encoded); err == nil {
			return p.format
		}
	}
	return Unrecognized
}

func parseLegacy(encoded string) error {
	tx, err := unmarshal(encoded)
	if err != nil {
		return err
	}
	if tx.Message.IsVersioned() {
		return errNotLegacy
	}
	return nil
}

func parseVersioned(encoded string) error {
	tx, err := unmarshal(encoded)
	if err != nil {
		return err
	}
	if !tx.Message.IsVersioned() {
		return errNotVersioned
	}
	return nil
}

func unmarshal(encoded string) (*solana.Transaction, error) {
	var tx solana.Transaction
	if err := tx.UnmarshalBase64(encoded); err != nil {
		return nil, fmt.Errorf("txdecode: unmarshal: %w", err)
	}
	return &tx, nil
}

// safeParse converts decoder panics on hostile input into errors.
func safeParse(fn func(string) error, encoded string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("txdecode: decoder panic: %v", r)
		}
	}()
	return fn(encoded)
}
