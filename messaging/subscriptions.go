// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package messaging

import (
	"sort"
	"sync"
)

// Subscriptions maps each publisher to the set of agents that receive a copy
// of everything it publishes. The relation is directed: subscribing X to Y
// does not subscribe Y to X.
type Subscriptions struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]struct{}
}

// NewSubscriptions returns an empty subscription table.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{subscribers: make(map[string]map[string]struct{})}
}

// Subscribe adds subscriber to publisher's set. Repeating a subscription has no effect.
func (s *Subscriptions) Subscribe(subscriber, publisher string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.subscribers[publisher]
	if !ok {
		set = make(map[string]struct{})
		s.subscribers[publisher] = set
	}
	set[subscriber] = struct{}{}
}

// Unsubscribe removes subscriber from publisher's set.
func (s *Subscriptions) Unsubscribe(subscriber, publisher string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.subscribers[publisher]
	if !ok {
		return
	}
	delete(set, subscriber)
	if len(set) == 0 {
		delete(s.subscribers, publisher)
	}
}

// Subscribers returns publisher's subscribers in sorted order.
func (s *Subscriptions) Subscribers(publisher string) []string {
	s.mu.RLock()
	set := s.subscribers[publisher]
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Resolve returns the delivery targets for a message: the receiver (when
// non-empty) plus every subscriber of sender, each listed once.
// The receiver, if any, comes first.
func (s *Subscriptions) Resolve(sender, receiver string) []string {
	targets := make([]string, 0, 4)
	if receiver != "" {
		targets = append(targets, receiver)
	}
	for _, sub := range s.Subscribers(sender) {
		if sub == receiver {
			continue
		}
		targets = append(targets, sub)
	}
	return targets
}
