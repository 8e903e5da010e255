package handlers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/xuanlam2007/scholium/internal/model"
)

const clockTag = "clock"

// FieldError ошибка конкретного поля запроса
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

var (
	validationOnce sync.Once
	translator     ut.Translator
)

// InitValidation настраивает валидатор gin: имена полей из json-тегов,
// английские сообщения, тег clock для HH:MM
func InitValidation() {
	validationOnce.Do(func() {
		locale := en.New()
		translator, _ = ut.New(locale, locale).GetTranslator("en")

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = en_translations.RegisterDefaultTranslations(v, translator)

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation(clockTag, func(fl validator.FieldLevel) bool {
			_, err := model.ParseClock(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterTranslation(clockTag, translator,
			func(t ut.Translator) error { return t.Add(clockTag, "{0} must be a 24-hour HH:MM time", false) },
			func(t ut.Translator, fe validator.FieldError) string {
				s, _ := t.T(clockTag, fe.Field())
				return s
			},
		)
	})
}

// bindJSON разбирает тело; при ошибке уже ответил 400
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			msg := fe.Error()
			if translator != nil {
				msg = fe.Translate(translator)
			}
			fields = append(fields, FieldError{Field: fe.Field(), Error: msg})
		}
		badRequest(c, "validation failed", fields...)
		return false
	}
	badRequest(c, "malformed request body")
	return false
}

// paramID положительный числовой параметр пути
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
