package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/i18n"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/records"
	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RecordMessages are the toasts shown after saving or removing a record.
type RecordMessages struct {
	Saved        i18n.Key
	Removed      i18n.Key
	RemoveFailed i18n.Key
}

var (
	CitizenMessages  = RecordMessages{Saved: i18n.CitizenSaved, Removed: i18n.CitizenRemoved, RemoveFailed: i18n.CitizenRemoveFailed}
	CustomerMessages = RecordMessages{Saved: i18n.CustomerSaved, Removed: i18n.CustomerRemoved, RemoveFailed: i18n.CustomerRemoveFail}
)

type RecordsHandler struct {
	records  *records.Service
	messages RecordMessages
}

func NewRecordsHandler(svc *records.Service, messages RecordMessages) *RecordsHandler {
	return &RecordsHandler{records: svc, messages: messages}
}

// listRoute is where the client goes after a successful save.
func (h *RecordsHandler) listRoute() string {
	return "/" + h.records.Collection()
}

func (h *RecordsHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	profiles, err := h.records.List(c.UserContext(), user.Sectors(), c.Query("search"))
	if err != nil {
		return fail(c, err, "")
	}
	return c.JSON(dto.ProfileListResponse{Items: profiles, Total: len(profiles)})
}

func (h *RecordsHandler) Get(c *fiber.Ctx) error {
	profile, err := h.records.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err, "")
	}
	return c.JSON(profile)
}

func (h *RecordsHandler) Create(c *fiber.Ctx) error {
	var p records.Profile
	if err := c.BodyParser(&p); err != nil {
		return badRequest(c)
	}
	p.ID = ""
	return h.save(c, p, fiber.StatusCreated)
}

func (h *RecordsHandler) Update(c *fiber.Ctx) error {
	var p records.Profile
	if err := c.BodyParser(&p); err != nil {
		return badRequest(c)
	}
	p.ID = c.Params("id")
	return h.save(c, p, fiber.StatusOK)
}

func (h *RecordsHandler) save(c *fiber.Ctx, p records.Profile, status int) error {
	l := middleware.Localizer(c)
	saved, err := h.records.Save(c.UserContext(), p)
	if err != nil {
		return fail(c, err, l.T(i18n.SaveFailed))
	}
	return c.Status(status).JSON(dto.ProfileResponse{
		Profile:  saved,
		Message:  l.T(h.messages.Saved),
		Redirect: h.listRoute(),
	})
}

func (h *RecordsHandler) Delete(c *fiber.Ctx) error {
	l := middleware.Localizer(c)
	if err := h.records.Delete(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err, l.T(h.messages.RemoveFailed))
	}
	return c.JSON(dto.MessageResponse{Message: l.T(h.messages.Removed)})
}

// Stream pushes the visible list again after every change.
func (h *RecordsHandler) Stream(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	sub, err := h.records.Watch(context.Background(), user.Sectors())
	if err != nil {
		return fail(c, err, "")
	}
	return serveEvents(c, sub)
}

// Export downloads the visible list, search applied, as a spreadsheet.
func (h *RecordsHandler) Export(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	data, err := h.records.Export(c.UserContext(), user.Sectors(), c.Query("search"))
	if err != nil {
		return fail(c, err, "")
	}
	c.Attachment(h.records.Collection() + ".xlsx")
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(data)
}
