package config

type RouteConfig interface {
	GetLoginPath() string
	GetCodeEntryPath() string
	GetParticipantInfoPath() string
	GetProfileStorageKey() string
}

type Routes struct{}

var _ RouteConfig = Routes{}

func (Routes) GetLoginPath() string {
	return "/login"
}

func (Routes) GetCodeEntryPath() string {
	return "/participant/enter"
}

func (Routes) GetParticipantInfoPath() string {
	return "/participant/info"
}

func (Routes) GetProfileStorageKey() string {
	return "contest_portal.user_profile"
}
