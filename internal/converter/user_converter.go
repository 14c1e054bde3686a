package converter

import (
	"go-consultation-service/internal/delivery/dto"
	"go-consultation-service/internal/domain/entity"
)

// UserToResponse converts a User entity to UserResponse DTO
func UserToResponse(user *entity.User) *dto.UserResponse {
	if user == nil {
		return nil
	}

	response := &dto.UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role.RoleName,
	}

	if user.SpecialistProfile != nil {
		response.Speciality = user.SpecialistProfile.Speciality
	}

	return response
}
