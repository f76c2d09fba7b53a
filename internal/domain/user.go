package domain

import "sort"

// User maps a chat identity to a to-do provider identity.
type User struct {
	ChatID     string // chat platform user id
	ProviderID string // to-do provider user id, empty when not enrolled
}

// Enrolled reports whether the user has a provider identity to fetch for.
func (u User) Enrolled() bool { return u.ProviderID != "" }

// Directory is the immutable set of configured users.
type Directory struct {
	users      []User
	byProvider map[string]User
}

// NewDirectory builds a directory ordered by chat id.
// Later duplicates of a chat id replace earlier ones. A provider id claimed
// by several chat users stays with the lowest chat id; the others are kept
// as unenrolled users.
func NewDirectory(users []User) Directory {
	byChat := make(map[string]User, len(users))
	for _, u := range users {
		if u.ChatID == "" {
			continue
		}
		byChat[u.ChatID] = u
	}

	d := Directory{
		users:      make([]User, 0, len(byChat)),
		byProvider: make(map[string]User, len(byChat)),
	}
	for _, u := range byChat {
		d.users = append(d.users, u)
	}
	sort.Slice(d.users, func(i, j int) bool { return d.users[i].ChatID < d.users[j].ChatID })
	for i, u := range d.users {
		if !u.Enrolled() {
			continue
		}
		if _, taken := d.byProvider[u.ProviderID]; taken {
			d.users[i].ProviderID = ""
			continue
		}
		d.byProvider[u.ProviderID] = u
	}
	return d
}

// Users returns every configured user in chat id order.
func (d Directory) Users() []User {
	out := make([]User, len(d.users))
	copy(out, d.users)
	return out
}

// Enrolled returns users that have a provider identity, in chat id order.
func (d Directory) Enrolled() []User {
	var out []User
	for _, u := range d.users {
		if u.Enrolled() {
			out = append(out, u)
		}
	}
	return out
}

// ByProvider resolves a provider identity back to its chat user.
func (d Directory) ByProvider(providerID string) (User, bool) {
	u, ok := d.byProvider[providerID]
	return u, ok
}
