package handler

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"schoolportal/internal/event"
)

var validatorsOnce sync.Once

// registerValidators adds the "clock" tag: an empty string or a valid
// HH:MM[:SS] time of day.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true
			}
			_, err := event.ParseClock(s)
			return err == nil
		})
	})
}
