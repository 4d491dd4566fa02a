package userlist

import (
	"strings"

	"team-directory/internal/domain"
)

// Filter 按 name / username / email / company.name 做大小写不敏感的子串匹配
// 保持原顺序；查询为空（trim 后）直接返回原切片
func Filter(users []domain.User, query string) []domain.User {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return users
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if matches(u, q) {
			out = append(out, u)
		}
	}
	return out
}

func matches(u domain.User, q string) bool {
	return strings.Contains(strings.ToLower(u.Name), q) ||
		strings.Contains(strings.ToLower(u.Username), q) ||
		strings.Contains(strings.ToLower(u.Email), q) ||
		strings.Contains(strings.ToLower(u.Company.Name), q)
}
