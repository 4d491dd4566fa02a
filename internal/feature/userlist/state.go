package userlist

import (
	"encoding/json"
	"strconv"

	"team-directory/internal/domain"
)

type Kind int

const (
	KindLoading Kind = iota
	KindSuccess
	KindError
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindEmpty:
		return "empty"
	default:
		return "loading"
	}
}

// LoadState 四选一：Loading / Success(users) / Error(msg) / Empty
// 只能通过下面的构造函数得到，零值即 Loading
type LoadState struct {
	kind  Kind
	users []domain.User
	msg   string
}

func Loading() LoadState { return LoadState{kind: KindLoading} }

func Success(users []domain.User) LoadState { return LoadState{kind: KindSuccess, users: users} }

func Failure(msg string) LoadState { return LoadState{kind: KindError, msg: msg} }

func Empty() LoadState { return LoadState{kind: KindEmpty} }

func (s LoadState) Kind() Kind { return s.kind }

// Users 仅 Success 有值
func (s LoadState) Users() []domain.User { return s.users }

// Message 仅 Error 有值
func (s LoadState) Message() string { return s.msg }

func (s LoadState) String() string {
	switch s.kind {
	case KindSuccess:
		return "success(" + strconv.Itoa(len(s.users)) + ")"
	case KindError:
		return "error(" + s.msg + ")"
	}
	return s.kind.String()
}

type stateJSON struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count"`
}

func (s LoadState) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{Status: s.kind.String(), Message: s.msg, Count: len(s.users)})
}

// Snapshot 某一时刻控制器状态的只读副本
type Snapshot struct {
	State   LoadState
	Query   string
	Users   []domain.User // 过滤后的视图
	Total   int           // allUsers 长度
	Version uint64
}

// Summary 列表页标题下的副标题
func (s Snapshot) Summary() string {
	switch s.State.Kind() {
	case KindSuccess:
		return strconv.Itoa(len(s.State.Users())) + " users"
	case KindError:
		return "Error occurred"
	case KindEmpty:
		return "No users"
	default:
		return "Loading..."
	}
}

// NoResults 数据已加载但搜索无命中
func (s Snapshot) NoResults() bool {
	return s.State.Kind() == KindSuccess && s.Query != "" && len(s.Users) == 0
}
