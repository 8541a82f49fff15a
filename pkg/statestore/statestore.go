// Package statestore is the embedded session state server of the desk: a
// redis-protocol key-value store the virtual filesystem persists its tree
// document into when no external redis is deployed. It speaks the string
// and hash subset the desktop session needs.
package statestore

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Server holds the in-memory session state and provides thread-safe access.
type Server struct {
	mu      sync.RWMutex
	strings map[string]string
	hashes  map[string]map[string]string
	expiry  map[string]time.Time
	started time.Time
}

func newServer() *Server {
	return &Server{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		expiry:  make(map[string]time.Time),
		started: time.Now(),
	}
}

// expiredLocked reports whether a key has passed its expiration. Callers
// hold at least the read lock; actual removal happens in the sweeper or on
// write.
func (s *Server) expiredLocked(key string) bool {
	exp, ok := s.expiry[key]
	return ok && time.Now().After(exp)
}

// sweepExpired periodically drops expired keys.
func (s *Server) sweepExpired() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		s.mu.Lock()
		for key, exp := range s.expiry {
			if now.After(exp) {
				delete(s.strings, key)
				delete(s.hashes, key)
				delete(s.expiry, key)
			}
		}
		s.mu.Unlock()
	}
}

// Set stores a string value with an optional expiration.
func (s *Server) Set(key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[key] = value
	delete(s.hashes, key)
	if ttl > 0 {
		s.expiry[key] = time.Now().Add(ttl)
	} else {
		delete(s.expiry, key)
	}
}

// Get retrieves a string value.
func (s *Server) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiredLocked(key) {
		return "", false
	}
	v, ok := s.strings[key]
	return v, ok
}

// Del removes keys and returns how many existed.
func (s *Server) Del(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, key := range keys {
		if s.expiredLocked(key) {
			delete(s.strings, key)
			delete(s.hashes, key)
			delete(s.expiry, key)
			continue
		}
		if _, ok := s.strings[key]; ok {
			delete(s.strings, key)
			count++
		} else if _, ok := s.hashes[key]; ok {
			delete(s.hashes, key)
			count++
		}
		delete(s.expiry, key)
	}
	return count
}

// Exists returns how many of the given keys exist.
func (s *Server) Exists(keys ...string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, key := range keys {
		if s.expiredLocked(key) {
			continue
		}
		if _, ok := s.strings[key]; ok {
			count++
		} else if _, ok := s.hashes[key]; ok {
			count++
		}
	}
	return count
}

// Keys returns every live key matching a redis glob pattern, sorted.
func (s *Server) Keys(pattern string) []string {
	re, err := globToRegexp(pattern)
	if err != nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for key := range s.strings {
		if !s.expiredLocked(key) && re.MatchString(key) {
			out = append(out, key)
		}
	}
	for key := range s.hashes {
		if !s.expiredLocked(key) && re.MatchString(key) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Scan returns one full page of matching keys. The store is small enough
// that a single pass always completes: the returned cursor is always 0.
func (s *Server) Scan(cursor int, pattern string, count int) (int, []string) {
	if cursor != 0 {
		return 0, nil
	}
	return 0, s.Keys(pattern)
}

// HSet stores a hash field, returning 1 when the field is new.
func (s *Server) HSet(key, field, value string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
		delete(s.strings, key)
	}
	_, existed := h[field]
	h[field] = value
	if existed {
		return 0
	}
	return 1
}

// HGet retrieves a hash field.
func (s *Server) HGet(key, field string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiredLocked(key) {
		return "", false
	}
	v, ok := s.hashes[key][field]
	return v, ok
}

// HDel removes hash fields and returns how many existed.
func (s *Server) HDel(key string, fields ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		return 0
	}
	count := 0
	for _, field := range fields {
		if _, ok := h[field]; ok {
			delete(h, field)
			count++
		}
	}
	if len(h) == 0 {
		delete(s.hashes, key)
	}
	return count
}

// HKeys returns the field names of a hash, sorted.
func (s *Server) HKeys(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiredLocked(key) {
		return nil
	}
	fields := make([]string, 0, len(s.hashes[key]))
	for field := range s.hashes[key] {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// HLen returns the number of fields in a hash.
func (s *Server) HLen(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiredLocked(key) {
		return 0
	}
	return len(s.hashes[key])
}

// FlushAll drops every key.
func (s *Server) FlushAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings = make(map[string]string)
	s.hashes = make(map[string]map[string]string)
	s.expiry = make(map[string]time.Time)
}

// Info renders basic server statistics.
func (s *Server) Info() string {
	s.mu.RLock()
	keys := len(s.strings) + len(s.hashes)
	s.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("# Server\r\n")
	sb.WriteString("herodesk_statestore:1\r\n")
	fmt.Fprintf(&sb, "uptime_in_seconds:%d\r\n", int(time.Since(s.started).Seconds()))
	sb.WriteString("# Keyspace\r\n")
	fmt.Fprintf(&sb, "db0:keys=%d\r\n", keys)
	return sb.String()
}

// globToRegexp converts a redis KEYS-style glob (* ? [..]) to a regexp.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end < 0 {
				sb.WriteString(regexp.QuoteMeta(pattern[i:]))
				i = len(pattern)
				break
			}
			sb.WriteString(pattern[i : i+end+1])
			i += end
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
