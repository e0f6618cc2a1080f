// Package routes builds client navigation targets from route templates.
package routes

import (
	"net/url"
	"strconv"
	"strings"
)

const Home = "home"

const (
	distanceTemplate     = "distance/:iouType/:transactionID/:reportID"
	waypointTemplate     = distanceTemplate + "/waypoint/:index"
	confirmationTemplate = distanceTemplate + "/confirmation"
)

// Fill substitutes ":name" segments of template with escaped params.
// Segments without a matching param are left as is.
func Fill(template string, params map[string]string) string {
	segments := strings.Split(template, "/")
	for i, seg := range segments {
		name, ok := strings.CutPrefix(seg, ":")
		if !ok {
			continue
		}
		if v, ok := params[name]; ok {
			segments[i] = url.PathEscape(v)
		}
	}
	return strings.Join(segments, "/")
}

func params(iouType, transactionID, reportID string) map[string]string {
	return map[string]string{
		"iouType":       iouType,
		"transactionID": transactionID,
		"reportID":      reportID,
	}
}

func Distance(iouType, transactionID, reportID string) string {
	return Fill(distanceTemplate, params(iouType, transactionID, reportID))
}

func Waypoint(iouType, transactionID, reportID string, index int) string {
	p := params(iouType, transactionID, reportID)
	p["index"] = strconv.Itoa(index)
	return Fill(waypointTemplate, p)
}

func Confirmation(iouType, transactionID, reportID string) string {
	return Fill(confirmationTemplate, params(iouType, transactionID, reportID))
}
