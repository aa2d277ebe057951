package wingtips

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDFactory produces trace or span identifiers.
type IDFactory func() string

// NewTraceID returns a 128-bit trace id as 32 lowercase hex characters: a
// random UUID with the dashes stripped.
func NewTraceID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// Fallback to a time-based id if crypto/rand fails.
		return fallbackID()
	}
	return hex.EncodeToString(id[:])
}

// NewSpanID returns a 64-bit span id as 16 lowercase hex characters.
func NewSpanID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fallback to a time-based id if crypto/rand fails.
		return fallbackID()
	}
	return hex.EncodeToString(b)
}

// fallbackID derives an identifier from the wall clock. Uniqueness is
// best-effort; this path only runs when crypto/rand is unavailable.
func fallbackID() string {
	return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
}

// IDPool keeps a buffer of pre-generated identifiers so hot span-creation
// paths do not pay crypto/rand latency. A background goroutine keeps the
// buffer topped up; Get falls back to inline generation when the buffer
// runs dry.
type IDPool struct {
	gen       IDFactory
	ready     chan string
	quit      chan struct{}
	closeOnce sync.Once
}

// NewIDPool creates an ID pool holding up to capacity identifiers.
func NewIDPool(capacity int, factory IDFactory) *IDPool {
	if capacity <= 0 {
		capacity = 1
	}
	p := &IDPool{
		gen:   factory,
		ready: make(chan string, capacity),
		quit:  make(chan struct{}),
	}
	go p.fill()
	return p
}

// Get returns a buffered identifier, generating one inline when none are
// available.
func (p *IDPool) Get() string {
	select {
	case id := <-p.ready:
		return id
	default:
		return p.gen()
	}
}

func (p *IDPool) fill() {
	for {
		select {
		case p.ready <- p.gen():
		case <-p.quit:
			return
		}
	}
}

// Close stops the refill goroutine. Get keeps working afterwards through
// the inline path.
func (p *IDPool) Close() {
	p.closeOnce.Do(func() { close(p.quit) })
}
