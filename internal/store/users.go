// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/jonasqin/automedia/internal/models"
)

const userKeyPrefix = "user:"

func userKey(id string) []byte {
	return []byte(userKeyPrefix + id)
}

// PutUser creates or replaces a user record.
func (s *BadgerStore) PutUser(ctx context.Context, user models.User) error {
	if user.ID == "" {
		return errors.New("user id required")
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user %s: %w", user.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(user.ID), data)
	})
	if err != nil {
		return fmt.Errorf("put user %s: %w", user.ID, err)
	}
	return nil
}

// ActiveUsers lists active accounts ordered by id.
func (s *BadgerStore) ActiveUsers(ctx context.Context) ([]models.UserSummary, error) {
	return s.listUsers("list active users", func(u models.User) bool {
		return u.Active
	})
}

// DigestRecipients lists active accounts that opted into the daily digest.
func (s *BadgerStore) DigestRecipients(ctx context.Context) ([]models.UserSummary, error) {
	return s.listUsers("list digest recipients", func(u models.User) bool {
		return u.Active && u.DigestOptIn
	})
}

func (s *BadgerStore) listUsers(op string, keep func(models.User) bool) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := s.scanPrefix(userKeyPrefix, func(val []byte) error {
		var user models.User
		if err := json.Unmarshal(val, &user); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		if keep(user) {
			users = append(users, user.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
