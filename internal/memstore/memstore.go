// Package memstore is an in-process relational store used when no database is
// configured and by tests. A single lock serialises writers; every write made
// through a Tx is journaled and undone if the transaction function fails.
package memstore

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrReadOnly = errors.New("memstore: write in read-only transaction")

type Product struct {
	ID          string
	Name        string
	Description string
	PriceAmount int64
	Currency    string
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	seq         int64
}

type CartLine struct {
	UserID      string
	ProductID   string
	ProductName string
	Quantity    int
	UnitAmount  int64
	Currency    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	seq         int64
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Event struct {
	ID        string
	Topic     string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

type lineKey struct {
	user    string
	product string
}

type DB struct {
	mu       sync.RWMutex
	products map[string]Product
	lines    map[lineKey]CartLine
	users    map[string]User
	events   []Event
	seq      int64
	now      func() time.Time
}

func New() *DB {
	return &DB{
		products: make(map[string]Product),
		lines:    make(map[lineKey]CartLine),
		users:    make(map[string]User),
		now:      time.Now,
	}
}

type Tx struct {
	db       *DB
	readOnly bool
	undo     []func()
}

// Update runs fn exclusively. If fn returns an error or panics every write it made
// is reverted.
func (db *DB) Update(fn func(tx *Tx) error) (err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx := &Tx{db: db}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		tx.rollback()
	}
	return err
}

// View runs fn under a shared lock; writes fail with ErrReadOnly.
func (db *DB) View(fn func(tx *Tx) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(&Tx{db: db, readOnly: true})
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *Tx) Now() time.Time { return tx.db.now() }

func (tx *Tx) nextSeq() int64 {
	tx.db.seq++
	return tx.db.seq
}

func (tx *Tx) Product(id string) (Product, bool) {
	p, ok := tx.db.products[id]
	return p, ok
}

// Products returns all products in insertion order.
func (tx *Tx) Products() []Product {
	out := make([]Product, 0, len(tx.db.products))
	for _, p := range tx.db.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (tx *Tx) PutProduct(p Product) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	prev, existed := tx.db.products[p.ID]
	if existed {
		p.seq = prev.seq
		p.CreatedAt = prev.CreatedAt
	} else {
		p.seq = tx.nextSeq()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = tx.db.now()
		}
	}
	p.UpdatedAt = tx.db.now()
	tx.db.products[p.ID] = p

	tx.undo = append(tx.undo, func() {
		if existed {
			tx.db.products[p.ID] = prev
		} else {
			delete(tx.db.products, p.ID)
		}
	})
	return nil
}

func (tx *Tx) Line(userID, productID string) (CartLine, bool) {
	l, ok := tx.db.lines[lineKey{userID, productID}]
	return l, ok
}

// Lines returns the user's lines in creation order.
func (tx *Tx) Lines(userID string) []CartLine {
	var out []CartLine
	for k, l := range tx.db.lines {
		if k.user == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// AllLines returns every line of every user, for invariant checks.
func (tx *Tx) AllLines() []CartLine {
	out := make([]CartLine, 0, len(tx.db.lines))
	for _, l := range tx.db.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (tx *Tx) PutLine(l CartLine) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	k := lineKey{l.UserID, l.ProductID}
	prev, existed := tx.db.lines[k]
	if existed {
		l.seq = prev.seq
		l.CreatedAt = prev.CreatedAt
	} else {
		l.seq = tx.nextSeq()
		l.CreatedAt = tx.db.now()
	}
	l.UpdatedAt = tx.db.now()
	tx.db.lines[k] = l

	tx.undo = append(tx.undo, func() {
		if existed {
			tx.db.lines[k] = prev
		} else {
			delete(tx.db.lines, k)
		}
	})
	return nil
}

func (tx *Tx) DeleteLine(userID, productID string) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	k := lineKey{userID, productID}
	prev, existed := tx.db.lines[k]
	if !existed {
		return nil
	}
	delete(tx.db.lines, k)

	tx.undo = append(tx.undo, func() { tx.db.lines[k] = prev })
	return nil
}

func (tx *Tx) User(id string) (User, bool) {
	u, ok := tx.db.users[id]
	return u, ok
}

func (tx *Tx) UserByName(username string) (User, bool) {
	for _, u := range tx.db.users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

func (tx *Tx) PutUser(u User) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	prev, existed := tx.db.users[u.ID]
	if u.CreatedAt.IsZero() {
		u.CreatedAt = tx.db.now()
	}
	tx.db.users[u.ID] = u

	tx.undo = append(tx.undo, func() {
		if existed {
			tx.db.users[u.ID] = prev
		} else {
			delete(tx.db.users, u.ID)
		}
	})
	return nil
}

func (tx *Tx) AppendEvent(e Event) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = tx.db.now()
	}
	n := len(tx.db.events)
	tx.db.events = append(tx.db.events, e)

	tx.undo = append(tx.undo, func() { tx.db.events = tx.db.events[:n] })
	return nil
}

func (tx *Tx) Events() []Event {
	out := make([]Event, len(tx.db.events))
	copy(out, tx.db.events)
	return out
}
