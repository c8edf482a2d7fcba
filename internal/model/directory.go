package model

import (
	"sort"

	"github.com/yanun0323/errors"
)

// Directory is the account/security reference registry. It is built once
// from configuration before recovery starts and is read-only afterwards.
type Directory struct {
	securities     map[int64]*Security
	subAccounts    map[int64]*SubAccount
	brokerAccounts map[int64]*BrokerAccount
	users          map[int64]*User
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		securities:     make(map[int64]*Security),
		subAccounts:    make(map[int64]*SubAccount),
		brokerAccounts: make(map[int64]*BrokerAccount),
		users:          make(map[int64]*User),
	}
}

// AddSecurity registers a security. IDs must be unique.
func (d *Directory) AddSecurity(sec *Security) error {
	if sec == nil || sec.ID == 0 {
		return errors.New("security id is required")
	}
	if _, ok := d.securities[sec.ID]; ok {
		return errors.New("duplicate security id")
	}
	d.securities[sec.ID] = sec
	return nil
}

// AddUser registers a user.
func (d *Directory) AddUser(u *User) error {
	if u == nil || u.ID == 0 {
		return errors.New("user id is required")
	}
	if _, ok := d.users[u.ID]; ok {
		return errors.New("duplicate user id")
	}
	d.users[u.ID] = u
	return nil
}

// AddBrokerAccount registers a broker account.
func (d *Directory) AddBrokerAccount(b *BrokerAccount) error {
	if b == nil || b.ID == 0 {
		return errors.New("broker account id is required")
	}
	if _, ok := d.brokerAccounts[b.ID]; ok {
		return errors.New("duplicate broker account id")
	}
	d.brokerAccounts[b.ID] = b
	return nil
}

// AddSubAccount registers a sub-account. Its broker account and user must
// already be registered.
func (d *Directory) AddSubAccount(a *SubAccount) error {
	if a == nil || a.ID == 0 {
		return errors.New("sub account id is required")
	}
	if _, ok := d.subAccounts[a.ID]; ok {
		return errors.New("duplicate sub account id")
	}
	if _, ok := d.brokerAccounts[a.BrokerAccountID]; !ok {
		return errors.New("sub account references unknown broker account")
	}
	if _, ok := d.users[a.UserID]; !ok {
		return errors.New("sub account references unknown user")
	}
	d.subAccounts[a.ID] = a
	return nil
}

// Security returns a security by id.
func (d *Directory) Security(id int64) (*Security, bool) {
	sec, ok := d.securities[id]
	return sec, ok
}

// SubAccount returns a sub-account by id.
func (d *Directory) SubAccount(id int64) (*SubAccount, bool) {
	a, ok := d.subAccounts[id]
	return a, ok
}

// BrokerAccount returns a broker account by id.
func (d *Directory) BrokerAccount(id int64) (*BrokerAccount, bool) {
	b, ok := d.brokerAccounts[id]
	return b, ok
}

// User returns a user by id.
func (d *Directory) User(id int64) (*User, bool) {
	u, ok := d.users[id]
	return u, ok
}

// Securities returns all securities ordered by id.
func (d *Directory) Securities() []*Security {
	out := make([]*Security, 0, len(d.securities))
	for _, sec := range d.securities {
		out = append(out, sec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SubAccounts returns all sub-accounts ordered by id.
func (d *Directory) SubAccounts() []*SubAccount {
	out := make([]*SubAccount, 0, len(d.subAccounts))
	for _, a := range d.subAccounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BrokerAccounts returns all broker accounts ordered by id.
func (d *Directory) BrokerAccounts() []*BrokerAccount {
	out := make([]*BrokerAccount, 0, len(d.brokerAccounts))
	for _, b := range d.brokerAccounts {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Users returns all users ordered by id.
func (d *Directory) Users() []*User {
	out := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
