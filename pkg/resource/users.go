package resource

import (
	"encoding/json"
	"time"

	gh "github.com/google/go-github/v80/github"
)

// UserRecord is one account as listed by /users.
type UserRecord struct {
	ID         *int64  `csv:"id"`
	NodeID     *string `csv:"node_id"`
	Login      *string `csv:"login"`
	Type       *string `csv:"type"`
	SiteAdmin  *bool   `csv:"site_admin"`
	URL        *string `csv:"url"`
	HTMLURL    *string `csv:"html_url"`
	AvatarURL  *string `csv:"avatar_url"`
	Repository string  `csv:"repository"`
}

// UserDetailedRecord is one account with its profile fields.
type UserDetailedRecord struct {
	ID              *int64     `csv:"id"`
	NodeID          *string    `csv:"node_id"`
	Login           *string    `csv:"login"`
	Type            *string    `csv:"type"`
	SiteAdmin       *bool      `csv:"site_admin"`
	Name            *string    `csv:"name"`
	Email           *string    `csv:"email"`
	Company         *string    `csv:"company"`
	Blog            *string    `csv:"blog"`
	Location        *string    `csv:"location"`
	Bio             *string    `csv:"bio"`
	TwitterUsername *string    `csv:"twitter_username"`
	PublicRepos     *int       `csv:"public_repos"`
	PublicGists     *int       `csv:"public_gists"`
	Followers       *int       `csv:"followers"`
	Following       *int       `csv:"following"`
	URL             *string    `csv:"url"`
	HTMLURL         *string    `csv:"html_url"`
	CreatedAt       *time.Time `csv:"created_at"`
	UpdatedAt       *time.Time `csv:"updated_at"`
	Repository      string     `csv:"repository"`
}

// Users lists every account in id order. The listing's since parameter is an
// account id, so time thresholds do not apply.
var Users = Definition[*gh.User, UserRecord]{
	Kind:   KindUsers,
	Path:   "/users",
	Tune:   pageOnly,
	Decode: decodeList[*gh.User],
	Map: func(s Scope, u *gh.User) []UserRecord {
		return one(UserRecord{
			ID:         u.ID,
			NodeID:     u.NodeID,
			Login:      u.Login,
			Type:       u.Type,
			SiteAdmin:  u.SiteAdmin,
			URL:        u.URL,
			HTMLURL:    u.HTMLURL,
			AvatarURL:  u.AvatarURL,
			Repository: s.Repository,
		})
	},
}

// UsersDetailed walks the same listing as Users. Map expects the body of the
// account's own url, see DecodeUser.
var UsersDetailed = Definition[*gh.User, UserDetailedRecord]{
	Kind:   KindUsersDetailed,
	Path:   Users.Path,
	Tune:   pageOnly,
	Decode: decodeList[*gh.User],
	Map: func(s Scope, u *gh.User) []UserDetailedRecord {
		return one(UserDetailedRecord{
			ID:              u.ID,
			NodeID:          u.NodeID,
			Login:           u.Login,
			Type:            u.Type,
			SiteAdmin:       u.SiteAdmin,
			Name:            u.Name,
			Email:           u.Email,
			Company:         u.Company,
			Blog:            u.Blog,
			Location:        u.Location,
			Bio:             u.Bio,
			TwitterUsername: u.TwitterUsername,
			PublicRepos:     u.PublicRepos,
			PublicGists:     u.PublicGists,
			Followers:       u.Followers,
			Following:       u.Following,
			URL:             u.URL,
			HTMLURL:         u.HTMLURL,
			CreatedAt:       timePtr(u.CreatedAt),
			UpdatedAt:       timePtr(u.UpdatedAt),
			Repository:      s.Repository,
		})
	},
}

// DecodeUser decodes a single account object.
func DecodeUser(body []byte) (*gh.User, error) {
	var u gh.User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
