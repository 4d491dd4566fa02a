package handler

import (
	"team-directory/internal/domain"
	"team-directory/internal/feature/userlist"
)

type UserView struct {
	domain.User
	AvatarURL string `json:"avatarUrl"`
	Initials  string `json:"initials"`
}

func NewUserView(u domain.User) UserView {
	return UserView{User: u, AvatarURL: u.AvatarURL(), Initials: u.Initials()}
}

func NewUserViews(us []domain.User) []UserView {
	out := make([]UserView, 0, len(us))
	for _, u := range us {
		out = append(out, NewUserView(u))
	}
	return out
}

// SnapshotView 列表页渲染所需的全部状态
type SnapshotView struct {
	State     userlist.LoadState `json:"state"`
	Query     string             `json:"query"`
	Summary   string             `json:"summary"`
	NoResults bool               `json:"noResults"`
	Total     int                `json:"total"`
	Version   uint64             `json:"version"`
	Users     []UserView         `json:"users"`
}

func NewSnapshotView(s userlist.Snapshot) SnapshotView {
	return SnapshotView{
		State:     s.State,
		Query:     s.Query,
		Summary:   s.Summary(),
		NoResults: s.NoResults(),
		Total:     s.Total,
		Version:   s.Version,
		Users:     NewUserViews(s.Users),
	}
}
