package domain

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrUserNotFound 在最近一次成功加载的列表里找不到该 id
var ErrUserNotFound = errors.New("user not found")

type Geo struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Geo     Geo    `json:"geo"`
}

type Company struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catchPhrase"`
	BS          string `json:"bs"`
}

// User 远端目录中的一条记录；拉取后只读，不在本地修改
type User struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Website  string  `json:"website"`
	Address  Address `json:"address"`
	Company  Company `json:"company"`
}

const avatarBase = "https://ui-avatars.com/api/"

// Initials 取姓名前两个单词的首字母（大写）
func (u User) Initials() string {
	var b strings.Builder
	n := 0
	for _, w := range strings.Fields(u.Name) {
		if n == 2 {
			break
		}
		r := []rune(w)
		b.WriteString(strings.ToUpper(string(r[0])))
		n++
	}
	return b.String()
}

// AvatarURL 名字按查询参数转义，空格变成 +
func (u User) AvatarURL() string {
	return avatarBase + "?name=" + url.QueryEscape(u.Name) + "&background=6B73FF&color=fff&size=128"
}

// UserSource 拉取完整用户列表（HTTP / 缓存 / 数据库均可）
type UserSource interface {
	FetchUsers(ctx context.Context) ([]User, error)
}
