package pkg

import (
	"context"
	"errors"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrTrackUnavailable = errors.New("track unavailable")

// TrackInfo 曲库解析结果
type TrackInfo struct {
	Ref        string
	Name       string
	Artist     string
	ArtworkURL string
}

// CatalogClient 包一层 Spotify Web API，client credentials 模式
type CatalogClient struct {
	api *spotify.Client
}

type CatalogConfig struct {
	ClientID     string
	ClientSecret string
}

func NewCatalogClient(ctx context.Context, cfg CatalogConfig) (*CatalogClient, error) {
	config := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, err
	}
	httpClient := spotifyauth.New().Client(ctx, token)
	return &CatalogClient{api: spotify.New(httpClient)}, nil
}

// Resolve 按 track id 查元数据；查不到返回 ErrTrackUnavailable，
// 调用侧可用客户端缓存的歌名兜底，不阻塞选歌
func (c *CatalogClient) Resolve(ctx context.Context, trackRef string) (*TrackInfo, error) {
	track, err := c.api.GetTrack(ctx, spotify.ID(trackRef))
	if err != nil {
		return nil, ErrTrackUnavailable
	}

	names := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		names = append(names, a.Name)
	}
	info := &TrackInfo{
		Ref:    trackRef,
		Name:   track.Name,
		Artist: strings.Join(names, ", "),
	}
	if len(track.Album.Images) > 0 {
		info.ArtworkURL = track.Album.Images[0].URL
	}
	return info, nil
}
