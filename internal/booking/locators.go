package booking

import (
	"fmt"
	"time"

	"github.com/v0xg/teetime/internal/locator"
)

var (
	loginEntry    = locator.Of(`//div[contains(@class, "member-login-btn")]/a`)
	identityField = locator.Of(`//form[contains(@class, "sign-in-form")]/fieldset//input[@type="text"]`)
	secretField   = locator.Of(`//form[contains(@class, "sign-in-form")]/fieldset//input[@type="password"]`)
	signIn        = locator.Of(`//form[contains(@class, "sign-in-form")]/div[contains(@class, "button-holder")]/button[@type="submit"]`)
	logoutControl = locator.Of(`//a[contains(text(), "Logout")]`)

	golfMenu     = locator.Of(`//a/span[contains(@class, "textured-nav-heading")][contains(text(), "Golf")]`)
	teeTimeItem  = locator.Of(`//a/span[contains(@class, "textured-nav-unselected-item")][contains(text(), "Book a Tee Time")]`)
	teeTimeTitle = locator.Of(`//h1[contains(., "Tee Time")]`)

	calendarOpener = locator.Of(`//span[contains(@class, "ui-icon-calendar")]`)
	dateClosed     = locator.Of(`//label[contains(@class, "portlet-msg-alert")][contains(text(), "not open")]`)

	bookNow = locator.Of(`//a[contains(., "Book Now")]`)
)

// dayCell addresses a calendar cell. The date picker numbers months from 0.
func dayCell(d time.Time) locator.Locator {
	return locator.Format(
		`//td[@data-handler="selectDay"][@data-month=%s][@data-year=%s]/a[normalize-space(text())=%s]`,
		fmt.Sprint(int(d.Month())-1), fmt.Sprint(d.Year()), fmt.Sprint(d.Day()),
	)
}

// dateDisplay is the read-only input echoing the selected date.
func dateDisplay(d time.Time) locator.Locator {
	return locator.Format(`//input[@readonly="readonly"][@value=%s]`, d.Format("01/02/2006"))
}

// reserveButton is the "Reserve" link of an available block labelled slot.
func reserveButton(slot string) locator.Locator {
	return locator.Format(`//div[contains(@class, "block-available")]//div[contains(., %s)]//a[contains(., "Reserve")]`, slot)
}

// partySizeOption is the n-th (1-based) player-count choice.
func partySizeOption(n int) locator.Locator {
	return locator.Format(`//div[contains(@class, "reservation-players")][1]/div[%s]`, n)
}

// partySizeActive is the highlighted player count after a selection.
func partySizeActive(n int) locator.Locator {
	return locator.Format(`//div[contains(@class, "ui-state-active")]/span[text()=%s]`, fmt.Sprint(n))
}
