package app

// purposeTip is advice shown on the faculty detail view for a common
// reason to visit.
type purposeTip struct {
	Purpose string
	Tip     string
}

var purposeTips = []purposeTip{
	{"Subject Doubt", "Faculty are usually available during non-teaching hours. Check availability before visiting."},
	{"Internship Approval", "For internship approvals it is best to schedule an appointment. Check if the faculty member is available now."},
	{"Project Guidance", "Prepare your questions beforehand. Office hours are ideal for project discussions."},
	{"Administrative Work", "Bring all required documents for administrative tasks. Check availability before visiting."},
}
