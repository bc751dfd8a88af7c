package model

// User 用户文档（集合 users），_id 即身份服务签发的用户 ID。
// Friends 以集合语义维护（$addToSet），顺序无意义且不允许重复。
type User struct {
	ID      string   `bson:"_id" json:"id"`
	Name    string   `bson:"name" json:"name"`
	Email   string   `bson:"email" json:"email"`
	Avatar  string   `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Friends []string `bson:"friends,omitempty" json:"-"`
}

// Profile 对外可见的用户资料（不含好友列表）。
type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// ToProfile 裁剪出公开字段。
func (u *User) ToProfile() Profile {
	return Profile{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
	}
}

// CollectionUsers 用户集合名
const CollectionUsers = "users"
