package worklogs

import "github.com/ssandy33/ado-pulse/internal/domain"

// Directory indexes tracker users by id and by normalized identity.
type Directory struct {
	byID       map[string]domain.TrackerUser
	byIdentity map[domain.Identity]domain.TrackerUser
}

func NewDirectory(users []domain.TrackerUser) Directory {
	d := Directory{
		byID:       make(map[string]domain.TrackerUser, len(users)),
		byIdentity: make(map[domain.Identity]domain.TrackerUser, len(users)),
	}
	for _, u := range users {
		d.byID[u.ID] = u
		if id := domain.NewIdentity(u.UniqueName); id != "" {
			if _, dup := d.byIdentity[id]; !dup {
				d.byIdentity[id] = u
			}
		}
	}
	return d
}

func (d Directory) ByID(id string) (domain.TrackerUser, bool) {
	u, ok := d.byID[id]
	return u, ok
}

func (d Directory) ByIdentity(id domain.Identity) (domain.TrackerUser, bool) {
	u, ok := d.byIdentity[id]
	return u, ok
}

func (d Directory) Len() int { return len(d.byID) }
