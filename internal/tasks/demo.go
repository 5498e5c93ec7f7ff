package tasks

import (
	"strings"

	"github.com/desertthunder/multistream/internal/models"
)

const profileCDN = "https://static-cdn.jtvnw.net/jtv_user_pictures/"

var demoSuggestions = []models.ChannelSuggestion{
	{ID: "19571641", Login: "ninja", DisplayName: "Ninja", GameName: "Fortnite", ThumbnailURL: profileCDN + "ninja-profile_image-6c7353c6142f9f26-70x70.png"},
	{ID: "44445592", Login: "pokimane", DisplayName: "Pokimane", GameName: "Just Chatting", ThumbnailURL: profileCDN + "pokimane-profile_image-4de9767e2b2af4b3-70x70.png"},
	{ID: "37402112", Login: "shroud", DisplayName: "shroud", GameName: "VALORANT", ThumbnailURL: profileCDN + "shroud-profile_image-7ca02ca7498710fc-70x70.png"},
	{ID: "71092938", Login: "xqc", DisplayName: "xQc", GameName: "Grand Theft Auto V", ThumbnailURL: profileCDN + "xqc-profile_image-9298dca608632101-70x70.png"},
}

var demoFollows = []models.FollowedChannel{
	{ID: "71092938", Login: "xqc", DisplayName: "xQc", IsLive: true, GameName: "Grand Theft Auto V", ViewerCount: 54213, Title: "JUICER RP", ProfileImageURL: profileCDN + "xqc-profile_image-9298dca608632101-70x70.png"},
	{ID: "37402112", Login: "shroud", DisplayName: "shroud", IsLive: true, GameName: "VALORANT", ViewerCount: 25302, Title: "ranked grind", ProfileImageURL: profileCDN + "shroud-profile_image-7ca02ca7498710fc-70x70.png"},
	{ID: "44445592", Login: "pokimane", DisplayName: "Pokimane", IsLive: true, GameName: "Just Chatting", ViewerCount: 18240, Title: "chatting + games later", ProfileImageURL: profileCDN + "pokimane-profile_image-4de9767e2b2af4b3-70x70.png"},
	{ID: "19571641", Login: "ninja", DisplayName: "Ninja", GameName: "Offline", ProfileImageURL: profileCDN + "ninja-profile_image-6c7353c6142f9f26-70x70.png"},
	{ID: "26490481", Login: "summit1g", DisplayName: "summit1g", GameName: "Offline"},
	{ID: "23161357", Login: "lirik", DisplayName: "LIRIK", GameName: "Offline"},
	{ID: "26301881", Login: "sodapoppin", DisplayName: "sodapoppin", GameName: "Offline"},
	{ID: "36769016", Login: "timthetatman", DisplayName: "TimTheTatman", GameName: "Offline"},
}

// DemoFollows returns the placeholder directory shown while logged out or after a failed fetch.
func DemoFollows() []models.FollowedChannel {
	return append([]models.FollowedChannel(nil), demoFollows...)
}

// DemoSuggestions returns the demo search results whose display name or login contains query,
// ignoring case.
func DemoSuggestions(query string) []models.ChannelSuggestion {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []models.ChannelSuggestion
	for _, s := range demoSuggestions {
		if strings.Contains(strings.ToLower(s.DisplayName), q) || strings.Contains(strings.ToLower(s.Login), q) {
			out = append(out, s)
		}
	}
	return out
}
