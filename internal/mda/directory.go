package mda

import "strings"

// Directory resolves user profiles for admin/user listings. The portal has
// no real identity backend; inject an implementation backed by one when it
// exists.
type Directory interface {
	Lookup(userID, email string) Profile
}

// SyntheticDirectory derives a deterministic placeholder profile from the
// account email, standing in for the absent user directory.
type SyntheticDirectory struct{}

func (SyntheticDirectory) Lookup(userID, email string) Profile {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	display := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	if display == "" {
		display = "Portal User"
	}
	return Profile{
		UserID:      userID,
		DisplayName: titleCase(display),
		Email:       strings.ToLower(email),
		Phone:       "",
		Department:  "Procurement",
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
