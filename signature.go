package nativecall

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the declared native signature of an export.
//
// The kind is trusted: binding an export with the wrong kind is undefined
// behaviour.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindReturnsU64 is uint64_t f(void).
	KindReturnsU64
	// KindTakesU64 is void f(uint64_t).
	KindTakesU64
)

// Exports of the reference native library.
const (
	DefaultProducer = "get_uint64"
	DefaultConsumer = "print_uint64"
)

func (k Kind) String() string {
	switch k {
	case KindReturnsU64:
		return "returns_u64"
	case KindTakesU64:
		return "takes_u64"
	default:
		return "unknown"
	}
}

// CSignature renders the C declaration of an export with this kind.
func (k Kind) CSignature(name string) string {
	switch k {
	case KindReturnsU64:
		return fmt.Sprintf("uint64_t %s(void)", name)
	case KindTakesU64:
		return fmt.Sprintf("void %s(uint64_t)", name)
	default:
		return fmt.Sprintf("? %s(?)", name)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if k != KindReturnsU64 && k != KindTakesU64 {
		return nil, fmt.Errorf("nativecall: cannot marshal kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "returns_u64":
		*k = KindReturnsU64
	case "takes_u64":
		*k = KindTakesU64
	default:
		return fmt.Errorf("nativecall: unknown signature kind %q", text)
	}
	return nil
}

// Signature declares one export.
type Signature struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// SignatureTable is the set of exports a caller binds up front.
type SignatureTable []Signature

// DefaultSignatures declares get_uint64 and print_uint64.
var DefaultSignatures = SignatureTable{
	{Name: DefaultProducer, Kind: KindReturnsU64},
	{Name: DefaultConsumer, Kind: KindTakesU64},
}

// Validate checks that the table is non-empty, that every name is a usable
// symbol name declared once, and that every kind is known.
func (table SignatureTable) Validate() error {
	if len(table) == 0 {
		return fmt.Errorf("%w: no signatures", ErrInvalidSignature)
	}

	seen := make(map[string]struct{}, len(table))
	var errs []error
	for i, sig := range table {
		switch {
		case strings.TrimSpace(sig.Name) == "":
			errs = append(errs, fmt.Errorf("%w: entry %d: empty name", ErrInvalidSignature, i))
			continue
		case sig.Name != strings.TrimSpace(sig.Name):
			errs = append(errs, fmt.Errorf("%w: entry %d: name %q has surrounding space", ErrInvalidSignature, i, sig.Name))
		case strings.ContainsRune(sig.Name, '\x00'):
			errs = append(errs, fmt.Errorf("%w: entry %d: name contains NUL", ErrInvalidSignature, i))
		}
		if sig.Kind != KindReturnsU64 && sig.Kind != KindTakesU64 {
			errs = append(errs, fmt.Errorf("%w: %s: unknown kind %d", ErrInvalidSignature, sig.Name, uint8(sig.Kind)))
		}
		if _, dup := seen[sig.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: %s declared more than once", ErrInvalidSignature, sig.Name))
		}
		seen[sig.Name] = struct{}{}
	}
	return errors.Join(errs...)
}

// Bindings holds every export of a SignatureTable, resolved and typed.
type Bindings struct {
	producers map[string]*Producer
	consumers map[string]*Consumer
}

// Bind validates table and resolves all of its exports. It fails on the
// first missing export, so a library that does not satisfy the table is
// rejected before any call is made.
func (library *Library) Bind(table SignatureTable) (*Bindings, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	bindings := &Bindings{
		producers: make(map[string]*Producer),
		consumers: make(map[string]*Consumer),
	}
	for _, sig := range table {
		switch sig.Kind {
		case KindReturnsU64:
			producer, err := library.ResolveReturningU64(sig.Name)
			if err != nil {
				return nil, err
			}
			bindings.producers[sig.Name] = producer
		case KindTakesU64:
			consumer, err := library.ResolveTakingU64(sig.Name)
			if err != nil {
				return nil, err
			}
			bindings.consumers[sig.Name] = consumer
		}
	}
	return bindings, nil
}

// Producer returns the bound export declared as KindReturnsU64.
func (b *Bindings) Producer(name string) (*Producer, error) {
	if producer, ok := b.producers[name]; ok {
		return producer, nil
	}
	if _, ok := b.consumers[name]; ok {
		return nil, fmt.Errorf("%w: %s is %s", ErrSignatureKind, name, KindTakesU64)
	}
	return nil, fmt.Errorf("nativecall: %s is not in the signature table", name)
}

// Consumer returns the bound export declared as KindTakesU64.
func (b *Bindings) Consumer(name string) (*Consumer, error) {
	if consumer, ok := b.consumers[name]; ok {
		return consumer, nil
	}
	if _, ok := b.producers[name]; ok {
		return nil, fmt.Errorf("%w: %s is %s", ErrSignatureKind, name, KindReturnsU64)
	}
	return nil, fmt.Errorf("nativecall: %s is not in the signature table", name)
}
