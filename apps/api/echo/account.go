package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/account"
)

var errAcctNotFoundInCtx = errors.New("account object not found in echo.Context")

type accountApi struct {
	svc        *account.Service
	media      core.MediaService
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
}

func registerAccountAPI(
	app *echo.Echo,
	jwt echo.MiddlewareFunc,
	svc *account.Service,
	media core.MediaService,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := accountApi{
		svc:        svc,
		media:      media,
		logger:     logger,
		validate:   validate,
		translator: translator,
	}

	// un-authed endpoints
	ag := app.Group("/auth")
	ag.POST("/student/register", api.registerStudent)
	ag.POST("/student/login", api.loginStudent)
	ag.POST("/teacher/register", api.registerTeacher)
	ag.POST("/teacher/login", api.loginTeacher)

	// student portal
	sg := app.Group("/students", jwt, roleMiddleware(svc, account.RoleStudent))
	sg.GET("/profile", api.retrieveProfile)
	sg.PUT("/profile", api.updateProfile)
	sg.POST("/profile/upload", api.uploadProfilePicture)
	sg.PUT("/marks", api.updateMarks)

	// teacher portal
	tg := app.Group("/teachers", jwt, roleMiddleware(svc, account.RoleTeacher))
	tg.GET("/students", api.queryStudents)
	tg.GET("/students/:id", api.retrieveStudent)
	tg.PUT("/students/:id", api.updateStudent)
	tg.DELETE("/students/:id", api.destroyStudent)
}

// Handlers

func (api *accountApi) registerStudent(ctx echo.Context) error {
	var data account.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	acct, token, err := api.svc.RegisterStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	return ctx.JSON(http.StatusCreated, studentAuthResponse{
		Message: "Student registered successfully.",
		Token:   token,
		Student: acct,
	})
}

func (api *accountApi) loginStudent(ctx echo.Context) error {
	var data account.Login
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Login")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acct, token, err := api.svc.Authenticate(ctx.Request().Context(), account.RoleStudent, data.Email, data.Password)
	if err != nil {
		// ErrNotFound -> 404, ErrInvalidCredentials -> 401
		return err
	}
	return ctx.JSON(http.StatusOK, studentAuthResponse{
		Message: "Login successful.",
		Token:   token,
		Student: acct,
	})
}

func (api *accountApi) registerTeacher(ctx echo.Context) error {
	var data account.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	acct, token, err := api.svc.RegisterTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	return ctx.JSON(http.StatusCreated, teacherAuthResponse{
		Message: "Teacher registered successfully.",
		Token:   token,
		Teacher: acct,
	})
}

func (api *accountApi) loginTeacher(ctx echo.Context) error {
	var data account.Login
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Login")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acct, token, err := api.svc.Authenticate(ctx.Request().Context(), account.RoleTeacher, data.Email, data.Password)
	if err != nil {
		// do not reveal whether the email is registered
		if cause := errors.Cause(err); cause == account.ErrNotFound || cause == account.ErrInvalidCredentials {
			return errInvalidCredentials
		}
		return errors.Wrap(err, "authenticating teacher")
	}
	return ctx.JSON(http.StatusOK, teacherAuthResponse{
		Message: "Login successful.",
		Token:   token,
		Teacher: acct,
	})
}

func (api *accountApi) retrieveProfile(ctx echo.Context) error {
	acct, ok := ctx.Get(accountContextKey).(account.Account)
	if !ok {
		return errors.Wrap(errAcctNotFoundInCtx, "retrieving profile from context")
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) updateProfile(ctx echo.Context) error {
	acct, ok := ctx.Get(accountContextKey).(account.Account)
	if !ok {
		return errors.Wrap(errAcctNotFoundInCtx, "retrieving profile from context")
	}

	var data account.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(ctx.Request().Context(), acct, api.validate, api.svc); err != nil {
		return err
	}

	updated, err := api.svc.UpdateProfile(ctx.Request().Context(), account.RoleStudent, acct.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *accountApi) updateMarks(ctx echo.Context) error {
	acct, ok := ctx.Get(accountContextKey).(account.Account)
	if !ok {
		return errors.Wrap(errAcctNotFoundInCtx, "retrieving profile from context")
	}

	var data marksUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to marksUpdateRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	updated, err := api.svc.UpdateMarks(ctx.Request().Context(), acct.ID, data.Subjects)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, marksResponse{Subjects: updated.Subjects})
}

func (api *accountApi) queryStudents(ctx echo.Context) error {
	students, err := api.svc.QueryStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *accountApi) retrieveStudent(ctx echo.Context) error {
	acct, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) updateStudent(ctx echo.Context) error {
	orig, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data account.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(ctx.Request().Context(), orig, api.validate, api.svc); err != nil {
		return err
	}

	updated, err := api.svc.UpdateStudent(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *accountApi) destroyStudent(ctx echo.Context) error {
	if err := api.svc.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Student removed"})
}

type (
	studentAuthResponse struct {
		Message string          `json:"message,omitempty"`
		Token   string          `json:"token"`
		Student account.Account `json:"student"`
	}

	teacherAuthResponse struct {
		Message string          `json:"message,omitempty"`
		Token   string          `json:"token"`
		Teacher account.Account `json:"teacher"`
	}

	marksUpdateRequest struct {
		Subjects []account.MarkPatch `json:"subjects" validate:"required,dive"`
	}

	marksResponse struct {
		Subjects []account.Subject `json:"subjects"`
	}
)
