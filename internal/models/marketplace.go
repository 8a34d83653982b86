// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package models

import "time"

// ProjectStatus is the lifecycle state of a posted project.
type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "Open"
	ProjectInProgress ProjectStatus = "InProgress"
	ProjectCompleted  ProjectStatus = "Completed"
	ProjectClosed     ProjectStatus = "Closed"
)

// ProposalStatus is the lifecycle state of a freelancer's proposal.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "Pending"
	ProposalAccepted  ProposalStatus = "Accepted"
	ProposalRejected  ProposalStatus = "Rejected"
	ProposalCancelled ProposalStatus = "Cancelled"
)

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	ContractActive    ContractStatus = "Active"
	ContractCompleted ContractStatus = "Completed"
	ContractCancelled ContractStatus = "Cancelled"
)

// User is the minimal user record this service needs: display names for
// notification text and the recipient set for project broadcasts. Account
// management lives in an external service.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Project is a client's posted job.
type Project struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Budget      float64       `json:"budget"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Proposal is a freelancer's bid on a project.
type Proposal struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"projectId"`
	FreelancerID string         `json:"freelancerId"`
	CoverLetter  string         `json:"coverLetter"`
	BidAmount    float64        `json:"bidAmount"`
	Status       ProposalStatus `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Contract binds a client and freelancer to an accepted proposal.
type Contract struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"projectId"`
	ProposalID   string         `json:"proposalId"`
	ClientID     string         `json:"clientId"`
	FreelancerID string         `json:"freelancerId"`
	AgreedAmount float64        `json:"agreedAmount"`
	Status       ContractStatus `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

// WalletTransaction records a completed external wallet mutation. The wallet
// service owns balances; this record is an audit trail only.
type WalletTransaction struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	BalanceAfter float64   `json:"balanceAfter"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"createdAt"`
}
