package template

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/clbanning/mxj/v2"
	"github.com/google/uuid"
)

// DefaultTimeStampFormat is used by timeStamp when no format is given.
const DefaultTimeStampFormat = "YYYY-MMM-DDTHH:MM:ss"

// HelperCall carries the inputs of a helper invocation.
type HelperCall struct {
	// Payload is the transaction payload. It is nil for argument-less create;m calls.
	Payload map[string]any
	// Arg is the literal or referenced argument; HasArg reports whether one was given.
	Arg    any
	HasArg bool
}

// ArgString returns the argument rendered as a string.
func (c HelperCall) ArgString() string {
	if !c.HasArg {
		return ""
	}
	return stringify(c.Arg)
}

// Input returns the argument when present and the payload otherwise.
func (c HelperCall) Input() any {
	if c.HasArg {
		return c.Arg
	}
	return c.Payload
}

// HelperFunc computes a template value. Returning a map merges its members into
// the top level of the document; the invoking field receives the member named
// after the helper.
type HelperFunc func(call HelperCall) (any, error)

// Encrypter encrypts generated PINs.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// Digester hashes generated PINs.
type Digester interface {
	Digest(value string) string
}

// HelperDeps are the collaborators of the built-in helpers.
type HelperDeps struct {
	PinEncrypter Encrypter
	PinDigester  Digester
	// Now defaults to time.Now.
	Now func() time.Time
}

// Registry is the closed set of helpers a template may invoke.
type Registry struct {
	helpers map[string]HelperFunc
}

// NewRegistry returns a registry holding the built-in helpers.
func NewRegistry(deps HelperDeps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &builtins{deps: deps}

	return &Registry{helpers: map[string]HelperFunc{
		"transactionId":            h.transactionID,
		"stan":                     h.stan,
		"timeStamp":                h.timeStamp,
		"encryptedPin":             h.encryptedPin,
		"hashedPin":                h.hashedPin,
		"internationalPhoneNumber": h.internationalPhoneNumber,
		"base64":                   h.base64,
		"JSON":                     h.json,
		"XML":                      h.xml,
		"uuid":                     h.uuid,
	}}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.helpers[name]
	return ok
}

// Names lists the registered helpers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.helpers))
	for name := range r.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes a helper by name.
func (r *Registry) Call(name string, call HelperCall) (any, error) {
	fn, ok := r.helpers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHelper, name)
	}
	result, err := fn(call)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateResolution, name, err)
	}
	return result, nil
}

type builtins struct {
	deps    HelperDeps
	counter atomic.Uint32
}

// transactionID returns a time-ordered unique id, uppercase base 36.
func (b *builtins) transactionID(HelperCall) (any, error) {
	now := b.deps.Now().UnixMicro()
	seq := b.counter.Add(1)
	id := strconv.FormatInt(now, 36) + strconv.FormatInt(int64(os.Getpid()%1296), 36) + strconv.FormatInt(int64(seq%1296), 36)
	return strings.ToUpper(id), nil
}

func (b *builtins) stan(HelperCall) (any, error) {
	return randomDigits(6)
}

func (b *builtins) timeStamp(call HelperCall) (any, error) {
	layout := DefaultTimeStampFormat
	if arg := call.ArgString(); arg != "" {
		layout = arg
	}
	return FormatMoment(b.deps.Now(), layout), nil
}

func (b *builtins) encryptedPin(HelperCall) (any, error) {
	if b.deps.PinEncrypter == nil {
		return nil, fmt.Errorf("no pin encrypter configured")
	}
	pin, err := randomDigits(4)
	if err != nil {
		return nil, err
	}
	encrypted, err := b.deps.PinEncrypter.Encrypt(pin)
	if err != nil {
		return nil, err
	}
	return map[string]any{"pin": pin, "encryptedPin": encrypted}, nil
}

func (b *builtins) hashedPin(call HelperCall) (any, error) {
	if b.deps.PinDigester == nil {
		return nil, fmt.Errorf("no pin digester configured")
	}
	pin, err := randomDigits(4)
	if err != nil {
		return nil, err
	}
	return map[string]any{"pin": pin, "hashedPin": b.deps.PinDigester.Digest(pin + call.ArgString())}, nil
}

// internationalPhoneNumber rewrites a 10 digit local number (0XXXXXXXXX) to 254XXXXXXXXX.
func (b *builtins) internationalPhoneNumber(call HelperCall) (any, error) {
	phone := call.ArgString()
	if strings.HasPrefix(phone, "0") && len(phone) == 10 {
		phone = "254" + phone[1:]
	}
	return phone, nil
}

func (b *builtins) base64(call HelperCall) (any, error) {
	return EncodeBase64(call.Input())
}

func (b *builtins) json(call HelperCall) (any, error) {
	raw, err := json.Marshal(call.Input())
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (b *builtins) xml(call HelperCall) (any, error) {
	obj, ok := call.Input().(map[string]any)
	if !ok {
		return false, nil
	}
	return EncodeXML(obj)
}

func (b *builtins) uuid(HelperCall) (any, error) {
	return uuid.NewString(), nil
}

// EncodeBase64 returns base64 of the JSON encoding of value.
func EncodeBase64(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

const xmlHeader = `<?xml version= "1.0" encoding="utf-8"?>` + "\n"

// EncodeXML renders an object as a <message> document, one element per member.
func EncodeXML(obj map[string]any) (string, error) {
	raw, err := mxj.Map(obj).XmlIndent("", "\t", "message")
	if err != nil {
		return "", err
	}
	return xmlHeader + string(raw), nil
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
