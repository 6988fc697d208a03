package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Clinic Attendance API",
        "description": "Kiosk clock in/out, roster approval and manager dashboard",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Kiosk", "description": "Unauthenticated kiosk endpoints"},
        {"name": "Authentication", "description": "Back-office login"},
        {"name": "Roster", "description": "Weekly roster editor and approval"},
        {"name": "Leave", "description": "Leave requests"},
        {"name": "Employees", "description": "Employee administration"},
        {"name": "Dashboard", "description": "Manager dashboard"},
        {"name": "Reports", "description": "Asynchronous monthly exports"}
    ],
    "paths": {
        "/qr": {
            "get": {
                "tags": ["Kiosk"],
                "summary": "Current kiosk QR token",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/qr/check": {
            "get": {
                "tags": ["Kiosk"],
                "summary": "Check a scanned token",
                "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/employees/active": {
            "get": {
                "tags": ["Kiosk"],
                "summary": "Active employees for the kiosk picker",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/employees/{id}/status": {
            "get": {
                "tags": ["Kiosk"],
                "summary": "Current clock state of an employee",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/clock": {
            "post": {
                "tags": ["Kiosk"],
                "summary": "Clock in or out",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "action", "in": "formData", "required": true, "type": "string", "enum": ["IN", "OUT"]},
                    {"name": "qr_token", "in": "formData", "required": true, "type": "string"},
                    {"name": "subject_employee_id", "in": "formData", "required": true, "type": "string"},
                    {"name": "subject_pin", "in": "formData", "required": true, "type": "string"},
                    {"name": "is_proxy", "in": "formData", "type": "string"},
                    {"name": "witness_employee_id", "in": "formData", "type": "string"},
                    {"name": "witness_pin", "in": "formData", "type": "string"},
                    {"name": "photo", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Expired token or wrong PIN", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Photo too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/photos/{token}": {
            "get": {
                "tags": ["Kiosk"],
                "summary": "Punch photo via signed link",
                "produces": ["image/jpeg"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "JPEG"}, "403": {"description": "Invalid or expired link"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate back-office user",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current back-office user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/divisions": {
            "get": {
                "tags": ["Employees"],
                "summary": "Active divisions",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/divisions/{id}/templates": {
            "post": {
                "tags": ["Roster"],
                "summary": "Create a shift template",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTemplateRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/roster/week": {
            "get": {
                "tags": ["Roster"],
                "summary": "Roster week view",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "division_id", "in": "query", "required": true, "type": "string"},
                    {"name": "week_start", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Roster"],
                "summary": "Replace roster cells for a week",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceWeekRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/roster/week/approve": {
            "post": {
                "tags": ["Roster"],
                "summary": "Approve submitted shifts for a week",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveWeekRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/leaves": {
            "post": {
                "tags": ["Leave"],
                "summary": "Submit a leave request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LeaveRequestPayload"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/leaves/{id}/approve": {
            "post": {
                "tags": ["Leave"],
                "summary": "Approve a leave request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Already decided"}}
            }
        },
        "/leaves/{id}/reject": {
            "post": {
                "tags": ["Leave"],
                "summary": "Reject a leave request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Already decided"}}
            }
        },
        "/employees": {
            "post": {
                "tags": ["Employees"],
                "summary": "Create employee",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEmployeeRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/employees/{id}": {
            "delete": {
                "tags": ["Employees"],
                "summary": "Deactivate employee",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deactivated"}}
            }
        },
        "/employees/{id}/pin": {
            "put": {
                "tags": ["Employees"],
                "summary": "Reset employee PIN",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"pin": {"type": "string"}}}}
                ],
                "responses": {"204": {"description": "Reset"}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Manager attendance dashboard",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "date", "in": "query", "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "Recent report jobs requested by the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "limit", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Request a monthly export",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}],
                "responses": {"202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired link"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateEmployeeRequest": {
            "type": "object",
            "required": ["name", "pin"],
            "properties": {
                "name": {"type": "string"},
                "pin": {"type": "string"},
                "division_id": {"type": "string"},
                "is_rostered": {"type": "boolean"}
            }
        },
        "CreateTemplateRequest": {
            "type": "object",
            "required": ["name", "start_time", "end_time"],
            "properties": {
                "name": {"type": "string"},
                "start_time": {"type": "string", "example": "07:00"},
                "end_time": {"type": "string", "example": "14:00"}
            }
        },
        "RosterCellSelection": {
            "type": "object",
            "properties": {
                "employee_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "template_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ReplaceWeekRequest": {
            "type": "object",
            "required": ["division_id", "week_start"],
            "properties": {
                "division_id": {"type": "string"},
                "week_start": {"type": "string", "format": "date"},
                "cells": {"type": "array", "items": {"$ref": "#/definitions/RosterCellSelection"}}
            }
        },
        "ApproveWeekRequest": {
            "type": "object",
            "required": ["division_id", "week_start"],
            "properties": {
                "division_id": {"type": "string"},
                "week_start": {"type": "string", "format": "date"}
            }
        },
        "LeaveRequestPayload": {
            "type": "object",
            "required": ["employee_id", "date_from", "date_to", "leave_type"],
            "properties": {
                "employee_id": {"type": "string"},
                "date_from": {"type": "string", "format": "date"},
                "date_to": {"type": "string", "format": "date"},
                "leave_type": {"type": "string", "enum": ["ANNUAL", "SICK", "OTHER"]},
                "reason": {"type": "string"}
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": ["type", "month", "format"],
            "properties": {
                "type": {"type": "string", "enum": ["monthly_attendance", "event_log"]},
                "month": {"type": "string", "example": "2024-05"},
                "divisionId": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
