package services

import (
  "bytes"
  "context"
  "fmt"
  "image/color"
  "os"
  "strings"
  "time"
  "github.com/fogleman/gg"
  "github.com/golang/freetype/truetype"
  "golang.org/x/image/font"
  "github.com/yungbote/pencilbase-backend/internal/logger"
  "github.com/yungbote/pencilbase-backend/internal/types"
)

const avatarSize = 512

// Background palette for generated initials avatars.
var avatarColors = []color.NRGBA{
  {R: 0x4C, G: 0x6E, B: 0xF5, A: 0xFF},
  {R: 0xF5, G: 0x6E, B: 0x4C, A: 0xFF},
  {R: 0x2E, G: 0xA4, B: 0x6B, A: 0xFF},
  {R: 0x9B, G: 0x59, B: 0xB6, A: 0xFF},
  {R: 0xE6, G: 0x7E, B: 0x22, A: 0xFF},
  {R: 0x16, G: 0xA0, B: 0x85, A: 0xFF},
  {R: 0xC0, G: 0x39, B: 0x2B, A: 0xFF},
  {R: 0x2C, G: 0x3E, B: 0x50, A: 0xFF},
}

type AvatarService interface {
  CreateAndUploadUserAvatar(ctx context.Context, user *types.User) error
  GenerateUserAvatar(user *types.User) (bytes.Buffer, error)
}

type avatarService struct {
  log             *logger.Logger
  bucketService   BucketService
  fontFace        font.Face
}

func NewAvatarService(log *logger.Logger, bucketService BucketService) (AvatarService, error) {
  serviceLog := log.With("service", "AvatarService")

  fontPath := strings.TrimSpace(os.Getenv("AVATAR_FONT"))
  if fontPath == "" {
    return nil, fmt.Errorf("Env var AVATAR_FONT is empty")
  }
  serviceLog.Info("Loading avatar font", "font", fontPath)

  face, err := loadFontFace(fontPath, 206)
  if err != nil {
    return nil, fmt.Errorf("could not load avatar font: %w", err)
  }

  return &avatarService{
    log:            serviceLog,
    bucketService:  bucketService,
    fontFace:       face,
  }, nil
}

func (as *avatarService) CreateAndUploadUserAvatar(ctx context.Context, user *types.User) error {
  buf, err := as.GenerateUserAvatar(user)
  if err != nil {
    return err
  }

  oldKey := strings.TrimSpace(user.AvatarBucketKey)

  // Versioned key so a stale cached object is never served for a new avatar.
  newKey := fmt.Sprintf("user_avatar/%s/%d.png", user.ID.String(), time.Now().UnixNano())

  if err := as.bucketService.UploadFile(ctx, newKey, bytes.NewReader(buf.Bytes())); err != nil {
    return fmt.Errorf("failed to upload user avatar: %w", err)
  }

  user.AvatarBucketKey = newKey
  user.AvatarURL = as.bucketService.GetPublicURL(newKey)

  if oldKey != "" && oldKey != newKey {
    if err := as.bucketService.DeleteFile(ctx, oldKey); err != nil {
      as.log.Warn("failed to delete old avatar (ignored)", "oldKey", oldKey, "error", err)
    }
  }

  return nil
}

func (as *avatarService) GenerateUserAvatar(user *types.User) (bytes.Buffer, error) {
  var buf bytes.Buffer
  if user == nil {
    return buf, fmt.Errorf("No user given")
  }

  bg := avatarColors[colorIndexFor(user)]
  initials := userInitials(user)

  dc := gg.NewContext(avatarSize, avatarSize)
  dc.SetColor(bg)
  dc.Clear()
  dc.SetFontFace(as.fontFace)
  dc.SetColor(color.White)
  dc.DrawStringAnchored(initials, float64(avatarSize)/2, float64(avatarSize)/2, 0.5, 0.5)

  if err := dc.EncodePNG(&buf); err != nil {
    return buf, fmt.Errorf("Failed to encode avatar PNG: %w", err)
  }
  return buf, nil
}

func loadFontFace(path string, points float64) (font.Face, error) {
  raw, err := os.ReadFile(path)
  if err != nil {
    return nil, err
  }
  parsed, err := truetype.Parse(raw)
  if err != nil {
    return nil, err
  }
  return truetype.NewFace(parsed, &truetype.Options{Size: points}), nil
}

func colorIndexFor(user *types.User) int {
  sum := 0
  for _, b := range user.ID {
    sum += int(b)
  }
  return sum % len(avatarColors)
}

func userInitials(user *types.User) string {
  initials := ""
  if first := strings.TrimSpace(user.FirstName); first != "" {
    initials += strings.ToUpper(first[:1])
  }
  if last := strings.TrimSpace(user.LastName); last != "" {
    initials += strings.ToUpper(last[:1])
  }
  if initials == "" {
    initials = "?"
  }
  return initials
}
