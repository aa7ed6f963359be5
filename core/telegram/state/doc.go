// Package state provides a lightweight per-user session store for Telegram bots.
// It is domain-agnostic: the conversation logic decides what a state means,
// the store only keeps the latest session for each user.
package state
