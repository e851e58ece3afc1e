// Structure of User Model in Wishful.

package entity

// Saved in DB as user:<username>
type User struct {
	Username string `json:"username" redis:"username" valid:"required,type(string),printableascii,stringlength(5|20),nospace~username:No spaces allowed here,username_custom~username:Only letters numbers underscores and periods allowed"`
	FullName string `json:"full_name,omitempty" redis:"full_name" valid:"type(string),stringlength(3|30),fullname_custom~full_name:Full Name can only contain letters spaces hyphens and apostrophes,optional"`
	Password string `json:"password,omitempty" redis:"password" valid:"required,type(string),minstringlength(5),pwdstrength~password:At least 1 letter and 1 number is mandatory"`
	Created  int64  `json:"created,omitempty" redis:"created" valid:"-"`
}

// Credentials sent during login.
type UserLogin struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Query used by the paginated user search.
type UserSearch struct {
	Username string
	Cursor   int
}

// UserRef is the display form of a user reference inside a populated entity.
type UserRef struct {
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

// DisplayName returns what a UI should print for the user.
func (u UserRef) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
