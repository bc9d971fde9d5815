package models

import (
	"path/filepath"
	"slices"
	"strings"
)

// Allowed upstream regions and platforms.
var (
	Regions   = []string{"eu", "na", "latam", "br", "ap", "kr"}
	Platforms = []string{"pc", "console"}
)

const (
	ModeCustom = "custom"

	VariantStandard   = "standard"
	VariantDeathmatch = "deathmatch"

	// DirectMessageGuild is the guild segment used when a request has no guild.
	DirectMessageGuild = "dm"
)

// Scope partitions the store. Two scopes never share records or index entries.
type Scope struct {
	GuildID     string `json:"guild_id"`
	Platform    string `json:"platform"`
	Region      string `json:"region"`
	Mode        string `json:"mode"`
	ModeVariant string `json:"mode_variant,omitempty"`
}

// ResolveScope normalizes raw request values into a Scope.
// Mode defaults to custom; the custom mode always carries a variant
// (deathmatch when asked for, standard otherwise).
func ResolveScope(guildID, platform, region, mode, variant string) (Scope, error) {
	s := Scope{
		GuildID:  strings.TrimSpace(guildID),
		Platform: strings.ToLower(strings.TrimSpace(platform)),
		Region:   strings.ToLower(strings.TrimSpace(region)),
		Mode:     strings.ToLower(strings.TrimSpace(mode)),
	}
	if s.GuildID == "" {
		s.GuildID = DirectMessageGuild
	}
	if s.Mode == "" {
		s.Mode = ModeCustom
	}
	if s.Mode == ModeCustom {
		if strings.EqualFold(strings.TrimSpace(variant), VariantDeathmatch) {
			s.ModeVariant = VariantDeathmatch
		} else {
			s.ModeVariant = VariantStandard
		}
	} else if v := strings.ToLower(strings.TrimSpace(variant)); v != "" {
		s.ModeVariant = v
	}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}

// Validate checks region, platform and that every segment is a safe path element.
func (s Scope) Validate() error {
	if err := ValidateRegion(s.Region); err != nil {
		return err
	}
	if err := ValidatePlatform(s.Platform); err != nil {
		return err
	}
	for _, seg := range s.segments() {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `/\:`) {
			return InvalidArgument("invalid scope segment %q", seg)
		}
	}
	return nil
}

// IsDeathmatch reports whether candidate filtering should select deathmatch games.
func (s Scope) IsDeathmatch() bool {
	return s.ModeVariant == VariantDeathmatch
}

// Dir returns the storage directory of the scope below root.
func (s Scope) Dir(root string) string {
	return filepath.Join(append([]string{root}, s.segments()...)...)
}

// Key is a stable identifier for the scope, used to share open handles.
func (s Scope) Key() string {
	return strings.Join(s.segments(), "/")
}

func (s Scope) segments() []string {
	segs := []string{s.GuildID, s.Platform, s.Region, s.Mode}
	if s.ModeVariant != "" {
		segs = append(segs, s.ModeVariant)
	}
	return segs
}

// ValidateRegion fails with ErrInvalidArgument for unknown regions.
func ValidateRegion(region string) error {
	if !slices.Contains(Regions, region) {
		return InvalidArgument("invalid region '%s'. Allowed: %s", region, strings.Join(Regions, ", "))
	}
	return nil
}

// ValidatePlatform fails with ErrInvalidArgument for unknown platforms.
func ValidatePlatform(platform string) error {
	if !slices.Contains(Platforms, platform) {
		return InvalidArgument("invalid platform '%s'. Allowed: %s", platform, strings.Join(Platforms, ", "))
	}
	return nil
}
