package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mentora/mentora/store"
)

// GetMasteryRules returns the effective rule set for a subject+grade,
// falling back to system defaults when none is configured.
func (s *APIV1Service) GetMasteryRules(c echo.Context) error {
	subject, grade, err := ruleKey(c)
	if err != nil {
		return err
	}

	rules, err := s.Store.GetMasteryRuleSet(c.Request().Context(), &store.FindMasteryRuleSet{
		Subject: subject,
		Grade:   grade,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load rule set").SetInternal(err)
	}
	if rules == nil {
		rules = store.DefaultMasteryRuleSet(subject, grade)
	}
	return c.JSON(http.StatusOK, rules)
}

// PutMasteryRules writes a rule set after bounding each threshold.
func (s *APIV1Service) PutMasteryRules(c echo.Context) error {
	subject, grade, err := ruleKey(c)
	if err != nil {
		return err
	}

	var rules store.MasteryRuleSet
	if err := c.Bind(&rules); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed rule set").SetInternal(err)
	}
	rules.Subject = subject
	rules.Grade = grade
	if err := rules.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	saved, err := s.Store.UpsertMasteryRuleSet(c.Request().Context(), &rules)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save rule set").SetInternal(err)
	}
	return c.JSON(http.StatusOK, saved)
}

func ruleKey(c echo.Context) (string, int, error) {
	subject := c.Param("subject")
	if subject == "" {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, "subject is required")
	}
	grade, err := strconv.Atoi(c.Param("grade"))
	if err != nil || grade < 0 {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, "grade must be a non-negative integer")
	}
	return subject, grade, nil
}
