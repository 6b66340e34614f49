package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gemini-vision-explorer/common"
	"gemini-vision-explorer/internal/utils"
	"gemini-vision-explorer/internal/vision"

	"github.com/google/uuid"
)

// Service 校验输入、调用模型并把结果整理成 Outcome。不缓存任何结果。
type Service struct {
	locator  vision.LocatorIface
	settings Settings
}

// NewService 创建分析服务
func NewService(locator vision.LocatorIface, settings Settings) *Service {
	return &Service{
		locator:  locator,
		settings: settings,
	}
}

// Settings 返回只读配置副本
func (s *Service) Settings() Settings {
	return s.settings
}

// Analyze 执行一次触发：依次检查凭据、图片是否齐全、图片是否可解码，全部通过后发起且只发起一次调用
func (s *Service) Analyze(ctx context.Context, form Form) Outcome {
	out := Outcome{
		RequestID: uuid.NewString(),
		Model:     s.settings.ResolveModel(form.Model),
	}
	log := common.WithFields(map[string]interface{}{
		"request_id": out.RequestID,
		"model":      out.Model,
	})

	apiKey := strings.TrimSpace(form.APIKey)
	if apiKey == "" {
		log.Info("Analysis rejected: missing API key")
		return out.with(KindMissingCredential, LevelError, MessageMissingCredential)
	}

	if isMissing(form.Target) || isMissing(form.Scene) {
		log.Info("Analysis rejected: target or scene image missing")
		return out.with(KindMissingInput, LevelWarning, MessageMissingInput)
	}

	target, err := s.inspect(form.Target)
	if err != nil {
		log.WithError(err).Info("Analysis rejected: invalid target image")
		return out.with(KindInvalidImage, LevelError, s.invalidImageMessage("Target Object", form.Target, err))
	}
	out.Previews = append(out.Previews, Preview{Caption: "Target Object", Image: target})

	scene, err := s.inspect(form.Scene)
	if err != nil {
		log.WithError(err).Info("Analysis rejected: invalid scene image")
		return out.with(KindInvalidImage, LevelError, s.invalidImageMessage("Scene", form.Scene, err))
	}
	out.Previews = append(out.Previews, Preview{Caption: "Scene to Analyze", Image: scene})

	if form.Model != "" && form.Model != out.Model {
		log.WithField("requested_model", form.Model).Warn("Unknown model requested, using default")
	}

	log.WithFields(map[string]interface{}{
		"target":      fmt.Sprintf("%s %dx%d", target.Format, target.Width, target.Height),
		"scene":       fmt.Sprintf("%s %dx%d", scene.Format, scene.Width, scene.Height),
		"instruction": utils.TruncateForLog(strings.TrimSpace(form.Instruction), 80),
	}).Info("Analyzing images")

	result, err := s.locator.LocateObject(ctx, vision.LocateRequest{
		APIKey:      apiKey,
		Model:       out.Model,
		Target:      target,
		Scene:       scene,
		Instruction: form.Instruction,
	})
	if err != nil {
		log.WithError(err).Error("Model call failed")
		return out.with(KindCallFailure, LevelError, MessageCallFailure)
	}

	log.WithField("result", utils.TruncateForLog(result, 200)).Info("Analysis complete")
	out.Result = result
	return out.with(KindSuccess, LevelSuccess, MessageSuccess)
}

func (s *Service) inspect(upload *Upload) (vision.Image, error) {
	info, err := utils.InspectImage(upload.Data, s.settings.AllowedFormats)
	if err != nil {
		return vision.Image{}, err
	}
	return vision.Image{
		Data:     upload.Data,
		MIMEType: info.MIMEType,
		Format:   info.Format,
		Width:    info.Width,
		Height:   info.Height,
	}, nil
}

func (o Outcome) with(kind Kind, level Level, message string) Outcome {
	o.Kind = kind
	o.Level = level
	o.Message = message
	return o
}

func isMissing(u *Upload) bool {
	return u == nil || len(u.Data) == 0
}

func (s *Service) invalidImageMessage(label string, upload *Upload, err error) string {
	name := upload.Filename
	if name == "" {
		name = "uploaded file"
	}
	if errors.Is(err, utils.ErrUnsupportedFormat) {
		return fmt.Sprintf("The %s image (%s) is not a supported format. Allowed: %s.",
			label, name, strings.Join(s.settings.AllowedFormats, ", "))
	}
	return fmt.Sprintf("The %s image (%s) could not be read as an image.", label, name)
}
