package service

import (
	"errors"

	"Talk_Flow/internal/pkg"
	"Talk_Flow/internal/repository/redis"
)

var emailActions = map[string]string{
	"register": "account registration",
	"reset":    "password reset",
}

type EmailService struct {
	emailCfg pkg.SMTPConfig
	rds      *redis.EmailCodeRepository
}

func NewEmailService(cfg pkg.SMTPConfig) *EmailService {
	return &EmailService{emailCfg: cfg, rds: &redis.EmailCodeRepository{}}
}

// SendCode mails a fresh verification code for the given scope. The code is
// stored as pending first and only confirmed once the mail actually went
// out, so a failed send can never verify.
func (s *EmailService) SendCode(scope, email string) error {
	action, ok := emailActions[scope]
	if !ok {
		return errors.New("unknown email scope")
	}

	code, err := pkg.RandDigits(6)
	if err != nil {
		return err
	}
	if err = s.rds.PutPending(scope, email, code); err != nil {
		return err
	}

	html := pkg.EmailCodeHTML(action, code, redis.DefaultEmailCodeTTL)
	if err = pkg.SendEmail(s.emailCfg, email, "Your verification code", html); err != nil {
		return err
	}

	if err = s.rds.Confirm(scope, email); err != nil {
		_ = s.rds.DeletePending(scope, email)
		return err
	}
	return nil
}

// VerifyCode checks and burns a confirmed code. One shot: a correct code is
// deleted on success.
func (s *EmailService) VerifyCode(scope, email, code string) (bool, error) {
	val, err := s.rds.GetConfirmed(scope, email)
	if err != nil {
		return false, err
	}
	if val != code {
		return false, nil
	}
	if err = s.rds.DeleteConfirmed(scope, email); err != nil {
		return false, err
	}
	return true, nil
}
